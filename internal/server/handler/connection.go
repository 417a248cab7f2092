package handler

import (
	"log"

	"github.com/hualuoo/lightcycle/internal/game/session"
	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/types"
)

// HandleDisconnect 处理客户端断开
// 大厅 / 已结束：直接移出；倒计时 / 运行中：判死，剩余人数触发胜负判定
func (h *Handler) HandleDisconnect(client types.ClientInterface) {
	username := client.GetUsername()
	if username == "" {
		return
	}

	// 同名新连接顶替后，旧连接退出时不再触碰对局状态
	if current := h.server.GetClientByUsername(username); current != nil && current != client {
		return
	}

	sess := h.registry.FindByPlayer(username)
	if sess == nil {
		return
	}

	log.Printf("🔌 玩家 %s 断开连接（对局 %s）", username, sess.ID)

	switch sess.Status() {
	case session.StatusLobby, session.StatusEnded:
		if !sess.RemovePlayer(username) {
			return
		}
		if sess.IsEmpty() {
			h.registry.Remove(sess.ID)
		} else {
			h.notifyColors(sess)
		}
		h.notifyLobbyChange(sess.ID)

	case session.StatusCountdown, session.StatusRunning:
		alive, survivor := sess.MarkDead(username)
		h.broadcastToGame(sess, protocol.MustNewMessage(protocol.MsgPlayerDisconnected, protocol.PlayerDisconnectedPayload{
			GameID:               sess.ID,
			DisconnectedUsername: username,
		}))

		switch {
		case alive == 1:
			h.endGame(sess, survivor, false)
		case alive == 0:
			h.endGame(sess, "", true)
		}
	}
}
