package session

import (
	"github.com/hualuoo/lightcycle/internal/game/grid"
	"github.com/hualuoo/lightcycle/internal/game/player"
	"github.com/hualuoo/lightcycle/internal/protocol"
)

// TickResult 一次模拟步进的结果；由调用方据此广播和收尾，
// Session 本身不接触传输层
type TickResult struct {
	Players []protocol.PlayerState // 步进后的全员状态
	Died    []string               // 本 tick 死亡的玩家
	Over    bool                   // 存活人数 ≤ 1，对局应当结束
	Winner  string                 // Over 时的唯一幸存者，平局为空
	Tie     bool                   // Over 且无幸存者
}

// Tick 推进一个模拟步进
// 所有存活玩家先基于 tick 开始时的网格快照判定碰撞，再统一落子，
// 因此同一 tick 内的判定与处理顺序无关，同时死亡会被全部记录
func (s *Session) Tick() *TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return nil
	}

	res := &TickResult{}

	// 第一阶段：对快照判定，碰撞者死亡且不移动、不占格
	type move struct {
		p    *player.Player
		next grid.Pos
	}
	var movers []move
	for _, p := range s.players {
		if !p.Alive {
			continue
		}
		next := p.NextPosition()
		if s.grid.WouldCollide(next) {
			p.Alive = false
			res.Died = append(res.Died, p.Username)
			continue
		}
		movers = append(movers, move{p: p, next: next})
	}

	// 对头进入同一空格：双方都死，避免结果依赖判定顺序
	byCell := make(map[grid.Pos][]*player.Player, len(movers))
	for _, m := range movers {
		byCell[m.next] = append(byCell[m.next], m.p)
	}
	for _, contenders := range byCell {
		if len(contenders) > 1 {
			for _, p := range contenders {
				p.Alive = false
				res.Died = append(res.Died, p.Username)
			}
		}
	}

	// 第二阶段：幸存者落子并占格
	for _, m := range movers {
		if !m.p.Alive {
			continue
		}
		m.p.Move()
		s.grid.Occupy(m.next, m.p.Username)
	}

	res.Players = s.playerStatesLocked()

	// 全员判定完毕后再决定终局，确保同 tick 多人死亡都被记录
	alive := 0
	var survivor string
	for _, p := range s.players {
		if p.Alive {
			alive++
			survivor = p.Username
		}
	}
	if alive <= 1 {
		res.Over = true
		if alive == 1 {
			res.Winner = survivor
		} else {
			res.Tie = true
		}
	}

	return res
}

// Grid 暴露网格只读访问（测试用）
func (s *Session) Grid() *grid.Grid {
	return s.grid
}
