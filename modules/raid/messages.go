package raid

import (
	"encoding/json"
	"errors"
)

// Client → server message types.
const (
	MsgAttack      = "attack"
	MsgVoiceAttack = "voice_attack"
	MsgChat        = "chat"
)

// Server → client message types.
const (
	MsgRaidState    = "raid_state"
	MsgPlayerJoined = "player_joined"
	MsgPlayerLeft   = "player_left"
	MsgRaidStarted  = "raid_started"
	MsgBossDamaged  = "boss_damaged"
	MsgRaidEnded    = "raid_ended"
)

// Codec errors. Anything that fails to decode is dropped by the room, so
// these surface only in logs and tests.
var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
)

// ClientMessage is the inbound wire envelope. The discriminator decides
// which of the remaining fields are meaningful.
type ClientMessage struct {
	Type       string `json:"type"`
	Damage     int    `json:"damage,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Message    string `json:"message,omitempty"`
}

// DecodeClientMessage parses and shape-checks an inbound frame.
func DecodeClientMessage(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientMessage{}, ErrMalformedMessage
	}

	switch msg.Type {
	case MsgAttack:
		if msg.Damage < 0 {
			return ClientMessage{}, ErrMalformedMessage
		}
	case MsgVoiceAttack:
		if msg.Damage < 0 {
			return ClientMessage{}, ErrMalformedMessage
		}
	case MsgChat:
		if msg.Message == "" {
			return ClientMessage{}, ErrMalformedMessage
		}
	default:
		return ClientMessage{}, ErrUnknownType
	}

	return msg, nil
}

// ServerMessage is the outbound wire envelope.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// PlayerPayload accompanies player_joined and player_left.
type PlayerPayload struct {
	Username string `json:"username"`
}

// DamagePayload accompanies boss_damaged and voice_attack broadcasts.
type DamagePayload struct {
	Username    string  `json:"username"`
	Transcript  string  `json:"transcript,omitempty"`
	Damage      int     `json:"damage"`
	RemainingHP int     `json:"remainingHP"`
	Percentage  float64 `json:"percentage"`
}

// ChatPayload accompanies chat broadcasts.
type ChatPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// EndedPayload accompanies raid_ended. Duration is milliseconds.
type EndedPayload struct {
	Victory      bool     `json:"victory"`
	Participants []string `json:"participants"`
	Duration     int64    `json:"duration"`
}

// encodeServer serializes an outbound envelope once, for fan-out reuse.
func encodeServer(msgType string, data any) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: msgType, Data: data})
}
