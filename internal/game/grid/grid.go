package grid

import "log"

const (
	// DefaultSize 默认网格边长
	DefaultSize = 100
	// minSize 网格边长下限，低于此值视为配置损坏
	minSize = 8
)

// Pos 网格坐标
type Pos struct {
	X int
	Y int
}

// Grid 正方形占用网格：每格为空或记录占用者的用户名
type Grid struct {
	size  int
	cells [][]string // cells[x][y] = 占用者用户名，"" 表示空
}

// New 创建 size*size 的空网格；非法的边长回退到默认值而不是 panic，
// 避免一份坏配置拖垮整个对局时钟
func New(size int) *Grid {
	if size < minSize {
		log.Printf("⚠️ 非法的网格边长 %d，回退到 %d", size, DefaultSize)
		size = DefaultSize
	}

	g := &Grid{size: size}
	g.Reset()
	return g
}

// Size 返回网格边长
func (g *Grid) Size() int {
	return g.size
}

// IsOutOfBounds 判断坐标是否越界
func (g *Grid) IsOutOfBounds(p Pos) bool {
	return p.X < 0 || p.X >= g.size || p.Y < 0 || p.Y >= g.size
}

// IsOccupied 判断格子是否已被占用，越界视为未占用
func (g *Grid) IsOccupied(p Pos) bool {
	if g.IsOutOfBounds(p) {
		return false
	}
	return g.cells[p.X][p.Y] != ""
}

// WouldCollide 判断移动到 p 是否碰撞：越界或已被占用
// 碰撞判定针对移动前的目标格，玩家当前所在格不会被误判为障碍
func (g *Grid) WouldCollide(p Pos) bool {
	return g.IsOutOfBounds(p) || g.IsOccupied(p)
}

// Occupy 标记格子被 username 占用；与碰撞判定分离，
// 只为本 tick 存活的玩家执行
func (g *Grid) Occupy(p Pos, username string) {
	if g.IsOutOfBounds(p) {
		return
	}
	g.cells[p.X][p.Y] = username
}

// OccupantAt 返回格子的占用者，空格或越界返回 ""
func (g *Grid) OccupantAt(p Pos) string {
	if g.IsOutOfBounds(p) {
		return ""
	}
	return g.cells[p.X][p.Y]
}

// Reset 清空所有格子
func (g *Grid) Reset() {
	cells := make([][]string, g.size)
	for x := range cells {
		cells[x] = make([]string, g.size)
	}
	g.cells = cells
}
