package handler

import (
	"context"
	"errors"
	"log"

	"github.com/hualuoo/lightcycle/internal/apperrors"
	"github.com/hualuoo/lightcycle/internal/game/session"
	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/types"
)

// reject 按固定样式下发拒绝应答，携带请求关联字段
func (h *Handler) reject(client types.ClientInterface, msgType protocol.MessageType, username, gameID string, err error) {
	reason := "未知错误"
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		reason = gameErr.Reason
	} else if err != nil {
		reason = err.Error()
	}

	client.SendMessage(protocol.MustNewMessage(msgType, protocol.Response{
		Username: username,
		GameID:   gameID,
		Valid:    false,
		Reason:   reason,
	}))
}

// handleGetAllLobbies 返回大厅列表：只包含非空且未结束的对局
func (h *Handler) handleGetAllLobbies(client types.ClientInterface) {
	lobbies := make([]protocol.LobbyInfo, 0)
	for _, sess := range h.registry.Snapshot() {
		if sess.IsEmpty() || sess.Status() == session.StatusEnded {
			continue
		}
		lobbies = append(lobbies, protocol.LobbyInfo{
			GameID:         sess.ID,
			GameName:       sess.Name,
			MaxPlayers:     sess.MaxPlayers,
			CurrentPlayers: sess.PlayerCount(),
		})
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgGetAllLobbiesResponse, protocol.GetAllLobbiesResponsePayload{
		Lobbies: lobbies,
	}))
}

// handleCreateGame 创建对局：创建者入座出生位并预分配颜色
func (h *Handler) handleCreateGame(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.CreateGamePayload](msg)
	if err != nil || payload.CreatorName == "" || payload.GameName == "" ||
		payload.MaxPlayers < session.MinPlayers || payload.MaxPlayers > session.MaxPlayers {
		h.reject(client, protocol.MsgCreateGameResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	if _, err := h.createSession(client, payload.CreatorName, payload.GameName, payload.MaxPlayers, ""); err != nil {
		h.reject(client, protocol.MsgCreateGameResponse, payload.CreatorName, "", err)
	}
}

// createSession 创建对局的公共路径（createGame 与 restartGame 共用）
// color 非空时作为创建者的首选颜色
func (h *Handler) createSession(client types.ClientInterface, creatorName, gameName string, maxPlayers int, color string) (*session.Session, error) {
	// 同一玩家只能属于一个活跃对局：先从其他对局撤出
	for _, pruned := range h.registry.DetachPlayer(creatorName, "") {
		h.notifyLobbyChange(pruned)
	}

	sess := session.New(gameName, maxPlayers, h.game.GridSize)
	if _, err := sess.AddPlayer(creatorName); err != nil {
		return nil, err
	}
	if color != "" {
		// 重开时沿用的颜色：失败则保留自动分配的颜色
		_ = sess.ChangeColor(creatorName, color)
	}
	h.registry.Add(sess)
	h.armKickTimer(sess, creatorName)

	log.Printf("🏠 对局 %s (%s) 已创建，创建者 %s", sess.ID, gameName, creatorName)

	// 全局广播新大厅条目，客户端无需刷新即可看到
	h.server.Broadcast(protocol.MustNewMessage(protocol.MsgCreateGameResponse, protocol.CreateGameResponsePayload{
		GameID:      sess.ID,
		CreatorName: creatorName,
		Valid:       true,
	}))

	// 将已占用的颜色（目前只有创建者的）发给创建者
	client.SendMessage(protocol.MustNewMessage(protocol.MsgUpdateColor, protocol.UpdateColorPayload{
		GameID:      sess.ID,
		ColorsTaken: sess.ColorsTaken(),
	}))

	return sess, nil
}

// armKickTimer 为入局玩家启动未准备踢出定时器，到点后完成移除侧的广播
func (h *Handler) armKickTimer(sess *session.Session, username string) {
	sess.ArmKickTimer(username, h.game.KickTimeoutDuration(), func(username string) {
		if kicked := h.server.GetClientByUsername(username); kicked != nil {
			kicked.SendMessage(protocol.MustNewMessage(protocol.MsgKickPlayer, protocol.KickPlayerPayload{
				GameID:   sess.ID,
				Username: username,
			}))
		}

		if sess.IsEmpty() {
			h.registry.Remove(sess.ID)
		} else {
			h.notifyColors(sess)
		}
		h.notifyLobbyChange(sess.ID)
	})
}

// handleJoinGame 加入对局
// 校验顺序固定：对局存在 → 账号存在 → 未重复加入 → 未满员 → 仍在大厅
func (h *Handler) handleJoinGame(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.JoinGamePayload](msg)
	if err != nil || payload.Username == "" || payload.GameID == "" {
		h.reject(client, protocol.MsgJoinGameResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	sess := h.registry.Get(payload.GameID)
	if sess == nil {
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, apperrors.ErrGameNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	exists, err := h.store.AccountExists(ctx, payload.Username)
	if err != nil {
		log.Printf("❌ 查询账号失败 (%s): %v", payload.Username, err)
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, err)
		return
	}
	if !exists {
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, apperrors.ErrPlayerNotFound)
		return
	}

	if sess.HasPlayer(payload.Username) {
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, apperrors.ErrAlreadyInGame)
		return
	}
	if sess.PlayerCount() >= sess.MaxPlayers {
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, apperrors.ErrGameFull)
		return
	}
	if sess.Status() != session.StatusLobby {
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, apperrors.ErrGameStarted)
		return
	}

	// 如果玩家还挂在别的对局里，静默迁移过来
	for _, pruned := range h.registry.DetachPlayer(payload.Username, sess.ID) {
		h.notifyLobbyChange(pruned)
	}

	if _, err := sess.AddPlayer(payload.Username); err != nil {
		h.reject(client, protocol.MsgJoinGameResponse, payload.Username, payload.GameID, err)
		return
	}
	h.armKickTimer(sess, payload.Username)

	log.Printf("👤 玩家 %s 加入对局 %s", payload.Username, sess.ID)

	// 全局广播人数变更，对局内广播新名单和颜色
	h.notifyLobbyChange(sess.ID)
	h.broadcastToGame(sess, protocol.MustNewMessage(protocol.MsgJoinGameResponse, protocol.JoinGameSuccessPayload{
		NewPlayerUsername: payload.Username,
		GameID:            sess.ID,
		Valid:             true,
	}))
	h.notifyColors(sess)
}

// handleLeaveLobby 离开大厅
func (h *Handler) handleLeaveLobby(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.LeaveLobbyPayload](msg)
	if err != nil || payload.Username == "" || payload.GameID == "" {
		h.reject(client, protocol.MsgLeaveLobbyResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	sess := h.registry.Get(payload.GameID)
	if sess == nil {
		h.reject(client, protocol.MsgLeaveLobbyResponse, payload.Username, payload.GameID, apperrors.ErrGameNotFound)
		return
	}
	if !sess.RemovePlayer(payload.Username) {
		h.reject(client, protocol.MsgLeaveLobbyResponse, payload.Username, payload.GameID, apperrors.ErrPlayerNotInGame)
		return
	}

	log.Printf("👋 玩家 %s 离开对局 %s", payload.Username, sess.ID)

	if sess.IsEmpty() {
		h.registry.Remove(sess.ID)
	} else {
		h.notifyColors(sess)
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgLeaveLobbyResponse, protocol.Response{
		Username: payload.Username,
		GameID:   payload.GameID,
		Valid:    true,
	}))
	h.notifyLobbyChange(sess.ID)
}

// handleChangeColor 更换颜色：仅大厅阶段、未准备且颜色空闲
func (h *Handler) handleChangeColor(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.ChangeColorPayload](msg)
	if err != nil || payload.Username == "" || payload.GameID == "" || payload.Color == "" {
		h.reject(client, protocol.MsgChangeColorResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	sess := h.registry.Get(payload.GameID)
	if sess == nil {
		h.reject(client, protocol.MsgChangeColorResponse, payload.Username, payload.GameID, apperrors.ErrGameNotFound)
		return
	}

	if err := sess.ChangeColor(payload.Username, payload.Color); err != nil {
		h.reject(client, protocol.MsgChangeColorResponse, payload.Username, payload.GameID, err)
		// 重新同步颜色占用状态，防止客户端与服务端视图漂移
		h.notifyColors(sess)
		return
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgChangeColorResponse, protocol.Response{
		Username: payload.Username,
		GameID:   sess.ID,
		Valid:    true,
	}))
	h.notifyColors(sess)
}

// handlePlayerReady 准备就绪：重复准备不再发确认
// 满员且全员就绪时启动开局倒计时
func (h *Handler) handlePlayerReady(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.PlayerReadyPayload](msg)
	if err != nil || payload.Username == "" || payload.GameID == "" {
		h.reject(client, protocol.MsgPlayerReadyResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	sess := h.registry.Get(payload.GameID)
	if sess == nil {
		h.reject(client, protocol.MsgPlayerReadyResponse, payload.Username, payload.GameID, apperrors.ErrGameNotFound)
		return
	}

	changed, allReady, err := sess.SetReady(payload.Username)
	if err != nil {
		h.reject(client, protocol.MsgPlayerReadyResponse, payload.Username, payload.GameID, err)
		return
	}
	if !changed {
		return
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgPlayerReadyResponse, protocol.Response{
		Username: payload.Username,
		GameID:   payload.GameID,
		Valid:    true,
	}))

	if allReady {
		if err := sess.BeginCountdown(); err != nil {
			return
		}
		log.Printf("🚦 对局 %s 满员且全员就绪，开始倒计时", sess.ID)
		go h.runCountdown(sess)
	}
}
