package session

import (
	"log"
	"sync"
)

// Registry 进程级对局注册表：并发安全的增删查
// 广播和大厅列表基于快照迭代，不会观察到删除到一半的对局
type Registry struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add 注册对局
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove 注销对局并停止其时钟
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		s.End(s.Winner, s.Tie)
		log.Printf("🏠 对局 %s 已从注册表移除", id)
	}
}

// Get 按 id 查找对局
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Snapshot 返回当前全部对局的一致快照
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	return list
}

// Len 返回注册的对局数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// FindByPlayer 返回名单中包含该玩家的对局，优先返回未结束的
func (r *Registry) FindByPlayer(username string) *Session {
	var ended *Session
	for _, s := range r.Snapshot() {
		if !s.HasPlayer(username) {
			continue
		}
		if s.Status() != StatusEnded {
			return s
		}
		ended = s
	}
	return ended
}

// DetachPlayer 将玩家从除 exceptID 外的所有对局名单中移除
// 玩家同一时间只能属于一个活跃对局；被腾空的对局随之注销，
// 返回被注销的对局 id 供调用方广播大厅变更
func (r *Registry) DetachPlayer(username, exceptID string) (pruned []string) {
	for _, s := range r.Snapshot() {
		if s.ID == exceptID {
			continue
		}
		if !s.RemovePlayer(username) {
			continue
		}
		if s.IsEmpty() {
			r.Remove(s.ID)
			pruned = append(pruned, s.ID)
		}
	}
	return pruned
}
