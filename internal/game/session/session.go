package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hualuoo/lightcycle/internal/apperrors"
	"github.com/hualuoo/lightcycle/internal/game/grid"
	"github.com/hualuoo/lightcycle/internal/game/player"
	"github.com/hualuoo/lightcycle/internal/protocol"
)

const (
	// MinPlayers 对局人数下限
	MinPlayers = 2
	// MaxPlayers 对局人数上限
	MaxPlayers = 4
)

// palette 可选颜色，入局时按序分配第一个空闲色
var palette = []string{"#00ffff", "#ff00ff", "#00ff00", "#ffff00"}

// spawnSlot 出生位：按入局顺序确定的位置和初始方向
type spawnSlot struct {
	x, y int
	dir  player.Direction
}

// Status 对局生命周期状态
type Status int

const (
	StatusLobby Status = iota
	StatusCountdown
	StatusRunning
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusLobby:
		return "lobby"
	case StatusCountdown:
		return "countdown"
	case StatusRunning:
		return "running"
	case StatusEnded:
		return "ended"
	}
	return "unknown"
}

// Session 一局游戏：持有自己的网格、名单和生命周期状态
// 名单按入局顺序排列，出生位由该顺序决定
type Session struct {
	ID         string
	Name       string
	MaxPlayers int

	grid    *grid.Grid
	players []*player.Player
	status  Status

	CreatedAt time.Time
	EndedAt   time.Time

	Winner string // 结束后有效，平局为空
	Tie    bool   // 结束后有效

	kickTimers map[string]*time.Timer
	stopCh     chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

// New 创建对局，状态为大厅；maxPlayers 收敛到 [2,4]
func New(name string, maxPlayers, gridSize int) *Session {
	if maxPlayers < MinPlayers {
		maxPlayers = MinPlayers
	}
	if maxPlayers > MaxPlayers {
		maxPlayers = MaxPlayers
	}

	return &Session{
		ID:         uuid.New().String(),
		Name:       name,
		MaxPlayers: maxPlayers,
		grid:       grid.New(gridSize),
		status:     StatusLobby,
		CreatedAt:  time.Now(),
		kickTimers: make(map[string]*time.Timer),
		stopCh:     make(chan struct{}),
	}
}

// spawnSlots 四个出生位：创建者在左侧中点向右，其余依次为右、下、上
func (s *Session) spawnSlots() [MaxPlayers]spawnSlot {
	n := s.grid.Size()
	return [MaxPlayers]spawnSlot{
		{0, n / 2, player.DirectionRight},
		{n - 1, n / 2, player.DirectionLeft},
		{n / 2, n - 1, player.DirectionUp},
		{n / 2, 0, player.DirectionDown},
	}
}

// AddPlayer 将玩家加入名单：分配出生位和第一个空闲颜色
// 创建者的出生位被腾空后（被踢 / 离开）由下一个入局者补位
func (s *Session) AddPlayer(username string) (*player.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return nil, apperrors.ErrGameStarted
	}
	if len(s.players) >= s.MaxPlayers {
		return nil, apperrors.ErrGameFull
	}
	if s.findPlayer(username) != nil {
		return nil, apperrors.ErrAlreadyInGame
	}

	slot, ok := s.freeSlot()
	if !ok {
		return nil, apperrors.ErrGameFull
	}

	color, ok := s.freeColor()
	if !ok {
		return nil, apperrors.ErrNoColorLeft
	}

	p := player.New(username, slot.x, slot.y, slot.dir)
	p.Color = color
	s.players = append(s.players, p)
	return p, nil
}

// freeSlot 返回第一个未被名单成员占据的出生位
func (s *Session) freeSlot() (spawnSlot, bool) {
	for _, slot := range s.spawnSlots() {
		taken := false
		for _, p := range s.players {
			if p.X == slot.x && p.Y == slot.y {
				taken = true
				break
			}
		}
		if !taken {
			return slot, true
		}
	}
	return spawnSlot{}, false
}

// freeColor 返回调色板中第一个未被占用的颜色
func (s *Session) freeColor() (string, bool) {
	for _, c := range palette {
		taken := false
		for _, p := range s.players {
			if p.Color == c {
				taken = true
				break
			}
		}
		if !taken {
			return c, true
		}
	}
	return "", false
}

// RemovePlayer 将玩家移出名单并撤销其踢出定时器
func (s *Session) RemovePlayer(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removePlayerLocked(username)
}

func (s *Session) removePlayerLocked(username string) bool {
	s.disarmKickTimerLocked(username)
	for i, p := range s.players {
		if p.Username == username {
			s.players = append(s.players[:i], s.players[i+1:]...)
			return true
		}
	}
	return false
}

// findPlayer 持锁调用
func (s *Session) findPlayer(username string) *player.Player {
	for _, p := range s.players {
		if p.Username == username {
			return p
		}
	}
	return nil
}

// HasPlayer 判断玩家是否在名单中
func (s *Session) HasPlayer(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPlayer(username) != nil
}

// PlayerCount 返回名单人数
func (s *Session) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// IsEmpty 判断名单是否为空
func (s *Session) IsEmpty() bool {
	return s.PlayerCount() == 0
}

// Status 返回生命周期状态
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Usernames 返回按入局顺序排列的名单
func (s *Session) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.players))
	for i, p := range s.players {
		names[i] = p.Username
	}
	return names
}

// PlayerStates 返回全员状态快照（用于广播）
func (s *Session) PlayerStates() []protocol.PlayerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerStatesLocked()
}

func (s *Session) playerStatesLocked() []protocol.PlayerState {
	states := make([]protocol.PlayerState, len(s.players))
	for i, p := range s.players {
		states[i] = protocol.PlayerState{
			Username:  p.Username,
			X:         p.X,
			Y:         p.Y,
			Direction: string(p.Direction),
			Alive:     p.Alive,
			Color:     p.Color,
		}
	}
	return states
}

// ColorsTaken 返回名单成员与其颜色（用于 updateColor 广播）
func (s *Session) ColorsTaken() []protocol.ColorEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]protocol.ColorEntry, len(s.players))
	for i, p := range s.players {
		entries[i] = protocol.ColorEntry{Username: p.Username, Color: p.Color}
	}
	return entries
}

// PlayerColor 返回玩家当前颜色，不在名单中返回 ""
func (s *Session) PlayerColor(username string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findPlayer(username); p != nil {
		return p.Color
	}
	return ""
}

// ChangeColor 更换颜色：仅大厅阶段、未准备、颜色合法且未被他人占用
func (s *Session) ChangeColor(username, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusLobby {
		return apperrors.ErrNotInLobby
	}

	p := s.findPlayer(username)
	if p == nil {
		return apperrors.ErrPlayerNotInGame
	}
	if p.Ready {
		return apperrors.ErrAlreadyReady
	}
	if !player.ValidColor(color) {
		return apperrors.ErrColorInvalid
	}
	for _, other := range s.players {
		if other.Username != username && other.Color == color {
			return apperrors.ErrColorTaken
		}
	}

	p.SetColor(color)
	return nil
}

// SetPlayerDirection 记录玩家的移动意图，折返与非法方向被忽略
func (s *Session) SetPlayerDirection(username string, d player.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPlayer(username)
	if p == nil {
		return apperrors.ErrPlayerNotInGame
	}
	p.SetDirection(d)
	return nil
}
