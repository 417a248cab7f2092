package handler

import (
	"context"
	"log"

	"github.com/hualuoo/lightcycle/internal/apperrors"
	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/types"
)

// handleConnectionPlayer 登录 / 注册：首次出现的用户名建号，
// 老账号做凭证校验；通过后连接才进入连接注册表
func (h *Handler) handleConnectionPlayer(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.ConnectionPlayerPayload](msg)
	if err != nil || payload.Username == "" || payload.Password == "" {
		client.SendMessage(protocol.MustNewMessage(protocol.MsgConnectionResponse, protocol.Response{
			Valid:  false,
			Reason: apperrors.ErrInvalidData.Reason,
		}))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	created, ok, err := h.store.EnsureAccount(ctx, payload.Username, payload.Password)
	if err != nil {
		log.Printf("❌ 账号校验失败 (%s): %v", payload.Username, err)
		client.SendMessage(protocol.MustNewMessage(protocol.MsgConnectionResponse, protocol.Response{
			Username: payload.Username,
			Valid:    false,
			Reason:   "服务器内部错误",
		}))
		return
	}
	if !ok {
		client.SendMessage(protocol.MustNewMessage(protocol.MsgConnectionResponse, protocol.Response{
			Username: payload.Username,
			Valid:    false,
			Reason:   apperrors.ErrBadCredentials.Reason,
		}))
		return
	}

	client.SetUsername(payload.Username)
	h.server.RegisterClient(payload.Username, client)

	if created {
		log.Printf("✅ 新玩家 %s 注册并连接", payload.Username)
	} else {
		log.Printf("✅ 玩家 %s 已连接", payload.Username)
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgConnectionResponse, protocol.Response{
		Username: payload.Username,
		Valid:    true,
	}))
}

// handleGetLeaderboard 返回胜场前五名
func (h *Handler) handleGetLeaderboard(client types.ClientInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	tops, err := h.store.TopPlayers(ctx, 5)
	if err != nil {
		log.Printf("❌ 获取排行榜失败: %v", err)
		client.SendMessage(protocol.MustNewMessage(protocol.MsgGetLeaderboardResponse, protocol.GetLeaderboardResponsePayload{
			Players: []protocol.LeaderboardEntry{},
			Valid:   false,
		}))
		return
	}

	entries := make([]protocol.LeaderboardEntry, len(tops))
	for i, stats := range tops {
		entries[i] = protocol.LeaderboardEntry{
			Username: stats.Username,
			Wins:     stats.Wins,
			Losses:   stats.Losses,
		}
	}

	client.SendMessage(protocol.MustNewMessage(protocol.MsgGetLeaderboardResponse, protocol.GetLeaderboardResponsePayload{
		Players: entries,
		Valid:   true,
	}))
}
