package server

import "github.com/hualuoo/lightcycle/internal/protocol"

// GetOnlineCount 获取在线人数（按需调用）
func (s *Server) GetOnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast 广播消息给所有客户端
func (s *Server) Broadcast(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		client.SendMessage(msg)
	}
}

// BroadcastToPlayers 按名单广播，离线玩家直接跳过
func (s *Server) BroadcastToPlayers(usernames []string, msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, username := range usernames {
		if client, ok := s.clients[username]; ok {
			client.SendMessage(msg)
		}
	}
}
