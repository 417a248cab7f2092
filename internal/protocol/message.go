package protocol

import "encoding/json"

// Message 扁平消息：type 为判别字段，业务字段与 type 平级
// 与嵌套 payload 不同，整条消息就是一个扁平 JSON 对象
type Message struct {
	Type MessageType
	raw  json.RawMessage
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgConnectionPlayer MessageType = "connectionPlayer" // 登录 / 注册

	// 大厅操作
	MsgGetAllLobbies  MessageType = "getAllLobbies"  // 获取大厅列表
	MsgGetLeaderboard MessageType = "getLeaderboard" // 获取排行榜
	MsgCreateGame     MessageType = "createGame"     // 创建对局
	MsgJoinGame       MessageType = "joinGame"       // 加入对局
	MsgLeaveLobby     MessageType = "leaveLobby"     // 离开大厅
	MsgChangeColor    MessageType = "changeColor"    // 更换颜色
	MsgPlayerReady    MessageType = "playerReady"    // 准备就绪

	// 对局操作
	MsgPlayerMovement MessageType = "playerMovement" // 改变移动方向
	MsgRestartGame    MessageType = "restartGame"    // 重开一局
)

// 服务端 → 客户端 消息类型
const (
	// 请求应答（均带 valid/reason 用于请求关联）
	MsgConnectionResponse     MessageType = "connectionResponse"
	MsgGetAllLobbiesResponse  MessageType = "getAllLobbiesResponse"
	MsgGetLeaderboardResponse MessageType = "getLeaderboardResponse"
	MsgCreateGameResponse     MessageType = "createGameResponse"
	MsgJoinGameResponse       MessageType = "joinGameResponse"
	MsgLeaveLobbyResponse     MessageType = "leaveLobbyResponse"
	MsgChangeColorResponse    MessageType = "changeColorResponse"
	MsgPlayerReadyResponse    MessageType = "playerReadyResponse"
	MsgPlayerMovementResponse MessageType = "playerMovementResponse"
	MsgRestartGameResponse    MessageType = "restartGameResponse"

	// 大厅 / 对局推送
	MsgUpdateLobbyInfos         MessageType = "updateLobbyInfos"         // 大厅列表变更（全局广播）
	MsgUpdateColor              MessageType = "updateColor"              // 颜色占用变更（对局广播）
	MsgCountdown                MessageType = "countdown"                // 开局倒计时
	MsgGameStart                MessageType = "gameStart"                // 对局开始
	MsgUpdateAllPlayerMovements MessageType = "updateAllPlayerMovements" // 每 tick 的全员位置
	MsgKickPlayer               MessageType = "kickPlayer"               // 未准备被踢出
	MsgPlayerDisconnected       MessageType = "playerDisconnected"       // 玩家掉线通知
	MsgEndGame                  MessageType = "endGame"                  // 对局结束
)
