package protocol

// --- 客户端请求 Payloads ---

// ConnectionPlayerPayload 登录 / 注册请求
type ConnectionPlayerPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateGamePayload 创建对局请求
type CreateGamePayload struct {
	CreatorName string `json:"creatorName"`
	GameName    string `json:"gameName"`
	MaxPlayers  int    `json:"maxPlayers"`
}

// JoinGamePayload 加入对局请求
type JoinGamePayload struct {
	Username string `json:"username"`
	GameID   string `json:"gameId"`
}

// LeaveLobbyPayload 离开大厅请求
type LeaveLobbyPayload struct {
	Username string `json:"username"`
	GameID   string `json:"gameId"`
}

// ChangeColorPayload 更换颜色请求
type ChangeColorPayload struct {
	Username string `json:"username"`
	GameID   string `json:"gameId"`
	Color    string `json:"color"`
}

// PlayerReadyPayload 准备就绪请求
type PlayerReadyPayload struct {
	Username string `json:"username"`
	GameID   string `json:"gameId"`
}

// PlayerMovementPayload 改变方向请求（下一 tick 生效）
type PlayerMovementPayload struct {
	Username  string `json:"username"`
	GameID    string `json:"gameId"`
	Direction string `json:"direction"`
}

// RestartGamePayload 重开一局请求
type RestartGamePayload struct {
	Username string `json:"username"`
	GameID   string `json:"gameId"`
	Color    string `json:"color,omitempty"` // 可选：沿用的颜色
}

// --- 服务端应答 Payloads ---

// Response 通用应答字段：valid/reason + 请求关联字段
type Response struct {
	Username string `json:"username,omitempty"`
	GameID   string `json:"gameId,omitempty"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

// CreateGameResponsePayload 创建对局应答（全局广播：新大厅条目）
type CreateGameResponsePayload struct {
	GameID      string `json:"gameId,omitempty"`
	CreatorName string `json:"creatorName,omitempty"`
	Valid       bool   `json:"valid"`
	Reason      string `json:"reason,omitempty"`
}

// JoinGameSuccessPayload 加入成功（对局广播）
type JoinGameSuccessPayload struct {
	NewPlayerUsername string `json:"newPlayerUsername"`
	GameID            string `json:"gameId"`
	Valid             bool   `json:"valid"`
}

// RestartGameResponsePayload 重开应答（发给旧对局的玩家）
type RestartGameResponsePayload struct {
	Username    string `json:"username,omitempty"`
	GameID      string `json:"gameId,omitempty"`
	RestartName string `json:"restartName,omitempty"`
	Valid       bool   `json:"valid"`
	Reason      string `json:"reason,omitempty"`
}

// --- 大厅 / 对局推送 Payloads ---

// LobbyInfo 大厅列表条目
type LobbyInfo struct {
	GameID         string `json:"gameId"`
	GameName       string `json:"gameName"`
	MaxPlayers     int    `json:"maxPlayers"`
	CurrentPlayers int    `json:"currentPlayers"`
}

// GetAllLobbiesResponsePayload 大厅列表应答
type GetAllLobbiesResponsePayload struct {
	Lobbies []LobbyInfo `json:"lobbies"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

// GetLeaderboardResponsePayload 排行榜应答
type GetLeaderboardResponsePayload struct {
	Players []LeaderboardEntry `json:"players"`
	Valid   bool               `json:"valid"`
}

// UpdateLobbyInfosPayload 大厅列表变更通知
type UpdateLobbyInfosPayload struct {
	GameID string `json:"gameId"`
}

// ColorEntry 颜色占用条目
type ColorEntry struct {
	Username string `json:"username"`
	Color    string `json:"color"`
}

// UpdateColorPayload 颜色占用变更通知
type UpdateColorPayload struct {
	GameID      string       `json:"gameId"`
	ColorsTaken []ColorEntry `json:"colorsTaken"`
}

// CountdownPayload 开局倒计时
type CountdownPayload struct {
	GameID string `json:"gameId"`
	Count  int    `json:"count"`
}

// GameStartPayload 对局开始通知
type GameStartPayload struct {
	GameID string `json:"gameId"`
}

// PlayerState 广播中的玩家状态
type PlayerState struct {
	Username  string `json:"username"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
	Alive     bool   `json:"alive"`
	Color     string `json:"color"`
}

// UpdateAllPlayerMovementsPayload 每 tick 的全员位置推送
type UpdateAllPlayerMovementsPayload struct {
	GameID  string        `json:"gameId"`
	Players []PlayerState `json:"players"`
}

// KickPlayerPayload 未准备被踢出通知
type KickPlayerPayload struct {
	GameID   string `json:"gameId"`
	Username string `json:"username"`
}

// PlayerDisconnectedPayload 玩家掉线通知
type PlayerDisconnectedPayload struct {
	GameID               string `json:"gameId"`
	DisconnectedUsername string `json:"disconnectedUsername"`
}

// EndGamePayload 对局结束通知；Tie 为真时无胜者
type EndGamePayload struct {
	GameID     string `json:"gameId"`
	WinnerName string `json:"winnerName,omitempty"`
	Tie        bool   `json:"tie,omitempty"`
	Valid      bool   `json:"valid"`
}
