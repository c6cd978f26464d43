// Package protocol описывает сообщения real-time канала: JSON-конверт
// {"type": ..., "payload": ...} поверх текстовых websocket-фреймов.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

// Типы событий
const (
	TypeJoinSession    = "join-session"    // client -> server
	TypeUpdateLocation = "update-location" // client -> server
	TypeLeaveSession   = "leave-session"   // client -> server, явный выход
	TypeSessionUpdate  = "session-update"  // server -> client, полный снапшот комнаты
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserPayload - описание участника от клиента. Указатели отличают
// "поле не передано" от нулевого значения.
type UserPayload struct {
	ID        string   `json:"id"`
	Name      *string  `json:"name,omitempty"`
	Color     *string  `json:"color,omitempty"`
	Icon      *string  `json:"icon,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type SessionPayload struct {
	SessionID string       `json:"sessionId"`
	User      *UserPayload `json:"user"`
}

// Decode разбирает конверт. Payload остаётся сырым до выбора типа.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", domain.ErrInvalidPayload)
	}
	return msg, nil
}

// DecodeSession разбирает payload join-session / update-location.
func DecodeSession(raw json.RawMessage) (SessionPayload, error) {
	var p SessionPayload
	if len(raw) == 0 {
		return p, fmt.Errorf("%w: empty payload", domain.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if p.User == nil {
		return p, fmt.Errorf("%w: missing user", domain.ErrInvalidPayload)
	}
	return p, nil
}

// Patch переводит payload в частичное обновление участника.
func (u UserPayload) Patch() domain.MemberPatch {
	return domain.MemberPatch{
		ID:        u.ID,
		Name:      u.Name,
		Color:     u.Color,
		Icon:      u.Icon,
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
	}
}

// EncodeSessionUpdate сериализует полный снапшот комнаты один раз на рассылку.
func EncodeSessionUpdate(members []domain.Member) ([]byte, error) {
	if members == nil {
		members = []domain.Member{}
	}
	payload, err := json.Marshal(members)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: TypeSessionUpdate, Payload: payload})
}
