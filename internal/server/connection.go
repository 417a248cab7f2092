package server

import (
	"log"
	"net/http"

	"github.com/hualuoo/lightcycle/internal/types"
)

// handleWebSocket 处理 WebSocket 连接
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// 连接数限制检查
	select {
	case s.semaphore <- struct{}{}:
	default:
		log.Printf("🚫 达到最大连接数限制 (%d)", s.maxConnections)
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		log.Printf("WebSocket 升级失败: %v", err)
		return
	}

	// 创建客户端；用户名在 connectionPlayer 通过后才设置
	client := NewClient(s, conn)

	log.Printf("🔗 新连接已建立 (%s)", r.RemoteAddr)

	// 启动客户端读写协程
	go func() {
		defer func() { <-s.semaphore }()
		client.ReadPump()
	}()
	go client.WritePump()
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// unregisterClient 注销客户端
func (s *Server) unregisterClient(client *Client) {
	username := client.GetUsername()
	if username == "" {
		return
	}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	// 同名新连接可能已顶替旧条目，只删除属于自己的那条
	if c, ok := s.clients[username]; ok && c == client {
		delete(s.clients, username)
		log.Printf("❌ 玩家 %s 已断开", username)
	}
}

// Interface implementations for types.ServerInterface

func (s *Server) GetClientByUsername(username string) types.ClientInterface {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	if client, ok := s.clients[username]; ok {
		return client
	}
	return nil
}

func (s *Server) RegisterClient(username string, client types.ClientInterface) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if c, ok := client.(*Client); ok {
		// 同名旧连接被顶替时直接关闭
		if old, exists := s.clients[username]; exists && old != c {
			old.Close()
		}
		s.clients[username] = c
	}
}

func (s *Server) UnregisterClient(username string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, username)
}
