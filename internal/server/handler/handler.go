package handler

import (
	"log"
	"time"

	"github.com/hualuoo/lightcycle/internal/config"
	"github.com/hualuoo/lightcycle/internal/game/session"
	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/server/storage"
	"github.com/hualuoo/lightcycle/internal/types"
)

// 持久化操作的超时时间
const storeTimeout = 5 * time.Second

// Deps 处理器依赖
type Deps struct {
	Server   types.ServerInterface
	Registry *session.Registry
	Store    *storage.RedisStore
	Game     config.GameConfig
}

// Handler 消息处理器：对局与注册表状态只通过这里变更
type Handler struct {
	server   types.ServerInterface
	registry *session.Registry
	store    *storage.RedisStore
	game     config.GameConfig
	handlers map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message)

// NewHandler 创建处理器
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		server:   deps.Server,
		registry: deps.Registry,
		store:    deps.Store,
		game:     deps.Game,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgConnectionPlayer: h.handleConnectionPlayer,

		// 大厅操作
		protocol.MsgGetAllLobbies:  func(c types.ClientInterface, _ *protocol.Message) { h.handleGetAllLobbies(c) },
		protocol.MsgGetLeaderboard: func(c types.ClientInterface, _ *protocol.Message) { h.handleGetLeaderboard(c) },
		protocol.MsgCreateGame:     h.handleCreateGame,
		protocol.MsgJoinGame:       h.handleJoinGame,
		protocol.MsgLeaveLobby:     h.handleLeaveLobby,
		protocol.MsgChangeColor:    h.handleChangeColor,
		protocol.MsgPlayerReady:    h.handlePlayerReady,

		// 对局操作
		protocol.MsgPlayerMovement: h.handlePlayerMovement,
		protocol.MsgRestartGame:    h.handleRestartGame,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	if handler, ok := h.handlers[msg.Type]; ok {
		handler(client, msg)
		return
	}

	log.Printf("⚠️  未知消息类型: '%s' (来自: %s)", msg.Type, client.GetUsername())
}

// Registry 暴露注册表（服务器关闭时统计用）
func (h *Handler) Registry() *session.Registry {
	return h.registry
}

// broadcastToGame 向对局名单内的在线玩家广播
func (h *Handler) broadcastToGame(sess *session.Session, msg *protocol.Message) {
	h.server.BroadcastToPlayers(sess.Usernames(), msg)
}

// notifyLobbyChange 全局广播大厅列表变更
func (h *Handler) notifyLobbyChange(gameID string) {
	h.server.Broadcast(protocol.MustNewMessage(protocol.MsgUpdateLobbyInfos, protocol.UpdateLobbyInfosPayload{
		GameID: gameID,
	}))
}

// notifyColors 向对局广播颜色占用状态
func (h *Handler) notifyColors(sess *session.Session) {
	h.broadcastToGame(sess, protocol.MustNewMessage(protocol.MsgUpdateColor, protocol.UpdateColorPayload{
		GameID:      sess.ID,
		ColorsTaken: sess.ColorsTaken(),
	}))
}
