package types

import (
	"github.com/hualuoo/lightcycle/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	GetOnlineCount() int
	Broadcast(msg *protocol.Message)
	BroadcastToPlayers(usernames []string, msg *protocol.Message)
	GetClientByUsername(username string) ClientInterface
	RegisterClient(username string, client ClientInterface)
	UnregisterClient(username string)
}

// ClientInterface 定义客户端接口
type ClientInterface interface {
	GetUsername() string
	SetUsername(username string)
	SendMessage(msg *protocol.Message)
	Close()
}
