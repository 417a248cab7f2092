package handler

import (
	"context"
	"log"
	"time"

	"github.com/hualuoo/lightcycle/internal/apperrors"
	"github.com/hualuoo/lightcycle/internal/game/player"
	"github.com/hualuoo/lightcycle/internal/game/session"
	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/server/storage"
	"github.com/hualuoo/lightcycle/internal/types"
)

// handlePlayerMovement 改变移动方向，下一 tick 生效
// 成功不回包：位置在 tick 广播里统一下发
func (h *Handler) handlePlayerMovement(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.PlayerMovementPayload](msg)
	if err != nil || payload.Username == "" || payload.GameID == "" || payload.Direction == "" {
		h.reject(client, protocol.MsgPlayerMovementResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	sess := h.registry.Get(payload.GameID)
	if sess == nil {
		h.reject(client, protocol.MsgPlayerMovementResponse, payload.Username, payload.GameID, apperrors.ErrGameNotFound)
		return
	}

	if err := sess.SetPlayerDirection(payload.Username, player.Direction(payload.Direction)); err != nil {
		h.reject(client, protocol.MsgPlayerMovementResponse, payload.Username, payload.GameID, err)
	}
}

// handleRestartGame 在旧对局结束后以同名同上限开一局新的
// 发起者保留原颜色（或请求中指定的颜色）并自动入座
func (h *Handler) handleRestartGame(client types.ClientInterface, msg *protocol.Message) {
	payload, err := protocol.ParsePayload[protocol.RestartGamePayload](msg)
	if err != nil || payload.Username == "" || payload.GameID == "" {
		h.reject(client, protocol.MsgRestartGameResponse, "", "", apperrors.ErrInvalidData)
		return
	}

	oldSess := h.registry.Get(payload.GameID)
	if oldSess == nil {
		h.reject(client, protocol.MsgRestartGameResponse, payload.Username, payload.GameID, apperrors.ErrGameNotFound)
		return
	}
	if !oldSess.HasPlayer(payload.Username) {
		h.reject(client, protocol.MsgRestartGameResponse, payload.Username, payload.GameID, apperrors.ErrPlayerNotInGame)
		return
	}
	if oldSess.Status() != session.StatusEnded {
		h.reject(client, protocol.MsgRestartGameResponse, payload.Username, payload.GameID, apperrors.ErrGameNotEnded)
		return
	}

	color := payload.Color
	if color == "" {
		color = oldSess.PlayerColor(payload.Username)
	}

	// 先记下旧对局的同伴，新对局建好后邀请他们跟随
	oldMates := oldSess.Usernames()

	newSess, err := h.createSession(client, payload.Username, oldSess.Name, oldSess.MaxPlayers, color)
	if err != nil {
		h.reject(client, protocol.MsgRestartGameResponse, payload.Username, payload.GameID, err)
		return
	}

	log.Printf("🔄 玩家 %s 重开对局 %s → %s", payload.Username, oldSess.ID, newSess.ID)

	// 通知旧对局的其余玩家：发起者已开了新局
	followers := make([]string, 0, len(oldMates))
	for _, name := range oldMates {
		if name != payload.Username {
			followers = append(followers, name)
		}
	}
	if len(followers) > 0 {
		h.server.BroadcastToPlayers(followers, protocol.MustNewMessage(protocol.MsgRestartGameResponse, protocol.RestartGameResponsePayload{
			GameID:      newSess.ID,
			RestartName: payload.Username,
			Valid:       true,
		}))
	}

	// 把发起者从旧对局里摘出来；空了就回收
	oldSess.RemovePlayer(payload.Username)
	if oldSess.IsEmpty() {
		h.registry.Remove(oldSess.ID)
	} else {
		h.notifyColors(oldSess)
	}
	h.notifyLobbyChange(oldSess.ID)
}

// runCountdown 开局倒计时：CountdownFrom..0 逐秒广播，归零后进入运行态
// 倒计时期间有人退出导致状态回落时直接放弃
func (h *Handler) runCountdown(sess *session.Session) {
	for count := h.game.CountdownFrom; count >= 0; count-- {
		if sess.Status() != session.StatusCountdown {
			return
		}
		h.broadcastToGame(sess, protocol.MustNewMessage(protocol.MsgCountdown, protocol.CountdownPayload{
			GameID: sess.ID,
			Count:  count,
		}))
		// 只在两次广播之间停顿，归零后立即开局
		if count > 0 {
			time.Sleep(h.game.CountdownStepDuration())
		}
	}

	if err := sess.StartRunning(); err != nil {
		return
	}
	h.broadcastToGame(sess, protocol.MustNewMessage(protocol.MsgGameStart, protocol.GameStartPayload{
		GameID: sess.ID,
	}))
	log.Printf("🏁 对局 %s 开始", sess.ID)

	go h.runTicks(sess)
}

// runTicks 仿真主循环：每 tick 推进一步并广播全员状态
func (h *Handler) runTicks(sess *session.Session) {
	ticker := time.NewTicker(h.game.TickIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-sess.Done():
			return
		case <-ticker.C:
			res := sess.Tick()
			if res == nil {
				return
			}

			h.broadcastToGame(sess, protocol.MustNewMessage(protocol.MsgUpdateAllPlayerMovements, protocol.UpdateAllPlayerMovementsPayload{
				GameID:  sess.ID,
				Players: res.Players,
			}))

			if res.Over {
				h.endGame(sess, res.Winner, res.Tie)
				return
			}
		}
	}
}

// endGame 结束对局：落库战绩与对局记录，并广播结果
// 对局保留在注册表中，供玩家 restartGame / leaveLobby
// tick 循环与掉线处理可能同时走到这里，只有完成状态切换的一方继续收尾
func (h *Handler) endGame(sess *session.Session, winner string, tie bool) {
	participants := sess.Usernames()
	if !sess.End(winner, tie) {
		return
	}

	record := &storage.GameRecord{
		ID:        sess.ID,
		Name:      sess.Name,
		Players:   participants,
		Winner:    winner,
		Tie:       tie,
		StartedAt: sess.CreatedAt.UnixMilli(),
		EndedAt:   time.Now().UnixMilli(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.store.SaveGameRecord(ctx, record); err != nil {
		log.Printf("❌ 保存对局记录失败 (%s): %v", sess.ID, err)
	}
	for _, name := range participants {
		won := !tie && name == winner
		if err := h.store.RecordResult(ctx, name, won); err != nil {
			log.Printf("❌ 更新战绩失败 (%s): %v", name, err)
		}
	}

	if tie {
		log.Printf("🏆 对局 %s 结束：平局", sess.ID)
	} else {
		log.Printf("🏆 对局 %s 结束：%s 获胜", sess.ID, winner)
	}

	h.server.BroadcastToPlayers(participants, protocol.MustNewMessage(protocol.MsgEndGame, protocol.EndGamePayload{
		GameID:     sess.ID,
		WinnerName: winner,
		Tie:        tie,
		Valid:      true,
	}))
	h.notifyLobbyChange(sess.ID)
}
