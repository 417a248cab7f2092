package apperrors

// GameError 对局相关错误，Reason 直接作为应答中的拒绝原因下发
type GameError struct {
	Reason string
}

func (e *GameError) Error() string {
	return e.Reason
}

// 预定义错误
var (
	ErrInvalidData     = &GameError{Reason: "缺少数据或数据无效"}
	ErrGameNotFound    = &GameError{Reason: "对局不存在"}
	ErrPlayerNotFound  = &GameError{Reason: "玩家不存在"}
	ErrPlayerNotInGame = &GameError{Reason: "玩家不在该对局中"}
	ErrAlreadyInGame   = &GameError{Reason: "玩家已在该对局中"}
	ErrGameFull        = &GameError{Reason: "大厅或对局已满"}
	ErrGameStarted     = &GameError{Reason: "对局已经开始"}
	ErrGameNotEnded    = &GameError{Reason: "对局尚未结束"}
	ErrNotInLobby      = &GameError{Reason: "对局不在大厅阶段"}
	ErrAlreadyReady    = &GameError{Reason: "已准备的玩家不能更换颜色"}
	ErrColorTaken      = &GameError{Reason: "颜色已被其他玩家占用"}
	ErrColorInvalid    = &GameError{Reason: "颜色格式无效"}
	ErrNoColorLeft     = &GameError{Reason: "没有可用的颜色"}
	ErrBadCredentials  = &GameError{Reason: "密码错误"}
)
