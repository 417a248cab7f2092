//go:build !production

package testutil

import (
	"sync"

	"github.com/hualuoo/lightcycle/internal/protocol"
	"github.com/hualuoo/lightcycle/internal/types"
)

// StubServer 实现 types.ServerInterface 的可用假件：
// 维护真实的客户端表并把广播投递给 SimpleClient 收件箱
type StubServer struct {
	mu      sync.RWMutex
	clients map[string]types.ClientInterface
}

func NewStubServer() *StubServer {
	return &StubServer{clients: make(map[string]types.ClientInterface)}
}

// Connect 注册一个 SimpleClient 并返回它，便于测试里直接断言收件箱
func (s *StubServer) Connect(username string) *SimpleClient {
	client := NewSimpleClient(username)
	s.RegisterClient(username, client)
	return client
}

func (s *StubServer) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *StubServer) Broadcast(msg *protocol.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		client.SendMessage(msg)
	}
}

func (s *StubServer) BroadcastToPlayers(usernames []string, msg *protocol.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, username := range usernames {
		if client, ok := s.clients[username]; ok {
			client.SendMessage(msg)
		}
	}
}

func (s *StubServer) GetClientByUsername(username string) types.ClientInterface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if client, ok := s.clients[username]; ok {
		return client
	}
	return nil
}

func (s *StubServer) RegisterClient(username string, client types.ClientInterface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[username] = client
}

func (s *StubServer) UnregisterClient(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, username)
}
