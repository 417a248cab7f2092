package player

import (
	"github.com/hualuoo/lightcycle/internal/game/grid"
)

// Direction 移动方向
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Valid 判断是否为四个有效方向之一
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return true
	}
	return false
}

// Opposite 返回相反方向
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionLeft:
		return DirectionRight
	case DirectionRight:
		return DirectionLeft
	}
	return DirectionNone
}

// Player 对局中的玩家实体，并发安全由所属 Session 的锁保证
type Player struct {
	Username  string
	X         int
	Y         int
	Direction Direction
	Ready     bool
	Alive     bool
	Color     string
}

// New 创建玩家，出生即存活、未准备
func New(username string, x, y int, dir Direction) *Player {
	return &Player{
		Username:  username,
		X:         x,
		Y:         y,
		Direction: dir,
		Alive:     true,
	}
}

// SetDirection 设置移动意图（下一 tick 生效）
// 与当前方向正好相反的输入被拒绝：不允许一步折返撞上自己的轨迹
func (p *Player) SetDirection(d Direction) bool {
	if !d.Valid() {
		return false
	}
	if p.Direction != DirectionNone && d == p.Direction.Opposite() {
		return false
	}
	p.Direction = d
	return true
}

// NextPosition 计算沿当前方向前进一格后的坐标，不改变状态
// up 为 y−1、down 为 y+1（屏幕坐标系）
func (p *Player) NextPosition() grid.Pos {
	next := grid.Pos{X: p.X, Y: p.Y}
	switch p.Direction {
	case DirectionUp:
		next.Y--
	case DirectionDown:
		next.Y++
	case DirectionLeft:
		next.X--
	case DirectionRight:
		next.X++
	}
	return next
}

// Move 将 NextPosition 的结果落实到实际坐标
func (p *Player) Move() {
	next := p.NextPosition()
	p.X = next.X
	p.Y = next.Y
}

// SetColor 设置颜色，仅接受 #RRGGBB 形式；无效输入保留上一个有效颜色
func (p *Player) SetColor(c string) bool {
	if !ValidColor(c) {
		return false
	}
	p.Color = c
	return true
}

// ValidColor 校验 #RRGGBB 颜色格式
func ValidColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		ch := c[i]
		switch {
		case ch >= '0' && ch <= '9':
		case ch >= 'a' && ch <= 'f':
		case ch >= 'A' && ch <= 'F':
		default:
			return false
		}
	}
	return true
}
