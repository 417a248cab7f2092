package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/hualuoo/lightcycle/internal/config"
	"github.com/hualuoo/lightcycle/internal/game/session"
	"github.com/hualuoo/lightcycle/internal/server/handler"
	"github.com/hualuoo/lightcycle/internal/server/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源，生产环境需要限制
	},
}

// Server WebSocket 服务器
type Server struct {
	config   *config.Config
	redis    *redis.Client
	store    *storage.RedisStore
	registry *session.Registry
	handler  *handler.Handler

	clients   map[string]*Client // 按用户名索引，认证后才登记
	clientsMu sync.RWMutex

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config) (*Server, error) {
	// 初始化 Redis 客户端
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 测试 Redis 连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	s := &Server{
		config:         cfg,
		redis:          rdb,
		store:          storage.NewRedisStore(rdb),
		registry:       session.NewRegistry(),
		clients:        make(map[string]*Client),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
	}

	// 初始化消息处理器
	s.handler = handler.NewHandler(handler.Deps{
		Server:   s,
		Registry: s.registry,
		Store:    s.store,
		Game:     cfg.Game,
	})

	return s, nil
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/health", s.handleHealth)

	// 启动监控 goroutine
	go s.monitorStats()

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	server := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server.ListenAndServe()
}

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		log.Printf("📊 [监控] 在线: %d | 对局: %d | Goroutines: %d | 活跃连接: %d/%d | 内存: %.2f MB",
			s.GetOnlineCount(),
			s.registry.Len(),
			runtime.NumGoroutine(),
			len(s.semaphore),
			s.maxConnections,
			float64(m.Alloc)/1024/1024)
	}
}

// Shutdown 关闭服务器
func (s *Server) Shutdown() {
	// 先结束所有对局，停掉倒计时和 tick 协程
	for _, sess := range s.registry.Snapshot() {
		s.registry.Remove(sess.ID)
	}

	// 关闭所有客户端连接
	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	// 关闭 Redis
	_ = s.redis.Close()

	log.Println("服务器已关闭")
}
