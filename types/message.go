package types

import (
	"time"

	"github.com/google/uuid"
)

// MessageType 消息类型。
type MessageType string

const (
	MessageRequest   MessageType = "request"
	MessageResponse  MessageType = "response"
	MessageBroadcast MessageType = "broadcast"
	MessageStatus    MessageType = "status"
	MessageError     MessageType = "error"
)

// Message 是角色间通信的不可变值对象。
// 一旦追加到消息日志中，就不会再被修改。
type Message struct {
	ID               string         `json:"id"`
	Sender           Role           `json:"sender"`
	Recipient        Role           `json:"recipient,omitempty"` // 空表示广播
	Type             MessageType    `json:"type"`
	Payload          map[string]any `json:"payload"`
	RequiresResponse bool           `json:"requires_response"`
	ParentID         string         `json:"parent_id,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// IsBroadcast 判断是否为广播消息。
func (m Message) IsBroadcast() bool { return m.Recipient == "" }

// NewRequest 创建一条需要响应的任务请求消息。
func NewRequest(sender, recipient Role, payload map[string]any) Message {
	return Message{
		ID:               uuid.New().String(),
		Sender:           sender,
		Recipient:        recipient,
		Type:             MessageRequest,
		Payload:          payload,
		RequiresResponse: true,
		Timestamp:        time.Now(),
	}
}

// NewResponse 创建对某条请求的响应消息。
func NewResponse(sender, recipient Role, parentID string, payload map[string]any) Message {
	return Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Recipient: recipient,
		Type:      MessageResponse,
		Payload:   payload,
		ParentID:  parentID,
		Timestamp: time.Now(),
	}
}

// NewBroadcast 创建广播消息。
func NewBroadcast(sender Role, payload map[string]any) Message {
	return Message{
		ID:        uuid.New().String(),
		Sender:    sender,
		Type:      MessageBroadcast,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
