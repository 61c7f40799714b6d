// Package codec 负责消息的构造和线上编码。
//
// 线上格式为 protobuf 的 google.protobuf.Struct：{"type": string, "payload": any}。
// payload 在进程内保持 JSON，以便直接解析到 protocol 中的结构体。
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/imposter/internal/protocol"
)

const (
	fieldType    = "type"
	fieldPayload = "payload"
)

var errMissingType = errors.New("消息缺少 type 字段")

// NewMessage 创建一个新消息
func NewMessage(msgType protocol.MessageType, payload any) (*protocol.Message, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &protocol.Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType protocol.MessageType, payload any) *protocol.Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 将消息编码为 Protobuf 字节
func Encode(m *protocol.Message) ([]byte, error) {
	envelope := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldType: structpb.NewStringValue(string(m.Type)),
	}}

	if len(m.Payload) > 0 {
		payload := &structpb.Value{}
		if err := protojson.Unmarshal(m.Payload, payload); err != nil {
			return nil, fmt.Errorf("编码 payload 失败: %w", err)
		}
		envelope.Fields[fieldPayload] = payload
	}

	return proto.Marshal(envelope)
}

// Decode 从 Protobuf 字节解码消息
func Decode(data []byte) (*protocol.Message, error) {
	var envelope structpb.Struct
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	msgType := envelope.GetFields()[fieldType].GetStringValue()
	if msgType == "" {
		return nil, errMissingType
	}

	msg := &protocol.Message{Type: protocol.MessageType(msgType)}
	if payload, ok := envelope.GetFields()[fieldPayload]; ok {
		raw, err := protojson.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("解码 payload 失败: %w", err)
		}
		msg.Payload = raw
	}
	return msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型
func ParsePayload[T any](msg *protocol.Message) (*T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 创建错误消息
func NewErrorMessage(code int) *protocol.Message {
	return NewErrorMessageWithText(code, protocol.ErrorMessages[code])
}

// NewErrorMessageWithText 创建带自定义文本的错误消息
func NewErrorMessageWithText(code int, text string) *protocol.Message {
	msg, _ := NewMessage(protocol.MsgError, protocol.ErrorPayload{
		Code:    code,
		Message: text,
	})
	return msg
}
