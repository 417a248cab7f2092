//go:build !production

package testutil

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/hualuoo/lightcycle/internal/protocol"
)

// MockClient 实现 types.ClientInterface 的 mock
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetUsername() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) SetUsername(username string) {
	m.Called(username)
}

func (m *MockClient) SendMessage(msg *protocol.Message) {
	m.Called(msg)
}

func (m *MockClient) Close() {
	m.Called()
}

// SimpleClient 简单的 mock 客户端，不使用 testify（用于不需要断言的测试）
// 倒计时和 tick 广播来自其他协程，收件箱需要加锁
type SimpleClient struct {
	Username string

	mu       sync.Mutex
	messages []*protocol.Message
}

func NewSimpleClient(username string) *SimpleClient {
	return &SimpleClient{Username: username}
}

func (m *SimpleClient) GetUsername() string         { return m.Username }
func (m *SimpleClient) SetUsername(username string) { m.Username = username }
func (m *SimpleClient) Close()                      {}

func (m *SimpleClient) SendMessage(msg *protocol.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// Messages 返回已收到消息的快照
func (m *SimpleClient) Messages() []*protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*protocol.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// MessagesOfType 按类型过滤已收到的消息
func (m *SimpleClient) MessagesOfType(msgType protocol.MessageType) []*protocol.Message {
	var out []*protocol.Message
	for _, msg := range m.Messages() {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// LastMessage 返回最后一条消息，没有则返回 nil
func (m *SimpleClient) LastMessage() *protocol.Message {
	msgs := m.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}
