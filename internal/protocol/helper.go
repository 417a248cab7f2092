package protocol

import (
	"encoding/json"
	"errors"
)

// ErrMissingType 消息缺少 type 字段
var ErrMissingType = errors.New("message missing type field")

// NewMessage 创建一条扁平消息：payload 的字段与 type 平级序列化
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	fields := make(map[string]any)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
	}
	fields["type"] = msgType

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, raw: raw}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType MessageType, payload any) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 将消息编码为 JSON 字节
func (m *Message) Encode() ([]byte, error) {
	return m.raw, nil
}

// Decode 从 JSON 字节解码消息，只解析 type，其余字段延迟到 ParsePayload
func Decode(data []byte) (*Message, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if head.Type == "" {
		return nil, ErrMissingType
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return &Message{Type: head.Type, raw: raw}, nil
}

// ParsePayload 将消息的扁平字段解析到指定类型
func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	if err := json.Unmarshal(msg.raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
