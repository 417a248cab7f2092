package session

import (
	"log"
	"time"

	"github.com/hualuoo/lightcycle/internal/apperrors"
)

// SetReady 将玩家置为已准备并撤销其踢出定时器；重复调用不产生状态变化
// 返回是否发生状态变化，以及名单是否已满员且全员就绪
func (s *Session) SetReady(username string) (changed, allReady bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPlayer(username)
	if p == nil {
		return false, false, apperrors.ErrPlayerNotInGame
	}
	if p.Ready {
		return false, false, nil
	}

	p.Ready = true
	s.disarmKickTimerLocked(username)
	return true, s.allReadyLocked(), nil
}

// allReadyLocked 满员且全员就绪才允许进入倒计时
func (s *Session) allReadyLocked() bool {
	if len(s.players) < s.MaxPlayers {
		return false
	}
	for _, p := range s.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

// BeginCountdown 大厅 → 倒计时；要求满员且全员就绪
func (s *Session) BeginCountdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return apperrors.ErrGameStarted
	}
	if !s.allReadyLocked() {
		return apperrors.ErrInvalidData
	}

	s.status = StatusCountdown
	return nil
}

// StartRunning 倒计时 → 运行；玩家从各自出生位沿初始方向开跑
func (s *Session) StartRunning() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusCountdown {
		return apperrors.ErrGameStarted
	}

	s.status = StatusRunning
	return nil
}

// MarkDead 将玩家原地标记死亡（名单保留），用于倒计时 / 运行期掉线
// 返回剩余存活人数与唯一幸存者（若有）
func (s *Session) MarkDead(username string) (alive int, survivor string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.findPlayer(username); p != nil {
		p.Alive = false
	}

	for _, p := range s.players {
		if p.Alive {
			alive++
			survivor = p.Username
		}
	}
	if alive != 1 {
		survivor = ""
	}
	return alive, survivor
}

// End 进入终态：停止模拟时钟、清空网格，名单保留用于展示和重开
// 返回本次调用是否完成了状态切换：tick 循环和掉线处理可能同时收尾，
// 落库和结束广播只允许完成切换的那一方执行
func (s *Session) End(winner string, tie bool) bool {
	s.mu.Lock()
	first := s.status != StatusEnded
	if first {
		s.status = StatusEnded
		s.EndedAt = time.Now()
		s.Winner = winner
		s.Tie = tie
		s.grid.Reset()
		for _, t := range s.kickTimers {
			t.Stop()
		}
		s.kickTimers = make(map[string]*time.Timer)
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	return first
}

// Done 在对局进入终态时关闭，模拟循环据此退出
func (s *Session) Done() <-chan struct{} {
	return s.stopCh
}

// --- 踢出定时器 ---

// ArmKickTimer 为入局玩家启动踢出定时器：到点仍在名单中且未准备则移除，
// 随后回调 onExpire 由调用方完成广播等副作用
// 玩家准备或离开时定时器被撤销
func (s *Session) ArmKickTimer(username string, timeout time.Duration, onExpire func(username string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.kickTimers[username]; ok {
		old.Stop()
	}
	s.kickTimers[username] = time.AfterFunc(timeout, func() {
		if s.expireKick(username) {
			log.Printf("⏰ 玩家 %s 超时未准备，被移出对局 %s", username, s.ID)
			if onExpire != nil {
				onExpire(username)
			}
		}
	})
}

// expireKick 定时器到点：玩家仍在大厅名单且未准备才移除
func (s *Session) expireKick(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.kickTimers, username)

	if s.status != StatusLobby {
		return false
	}
	p := s.findPlayer(username)
	if p == nil || p.Ready {
		return false
	}
	return s.removePlayerLocked(username)
}

// disarmKickTimerLocked 持锁调用
func (s *Session) disarmKickTimerLocked(username string) {
	if t, ok := s.kickTimers[username]; ok {
		t.Stop()
		delete(s.kickTimers, username)
	}
}
