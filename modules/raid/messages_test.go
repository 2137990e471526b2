package raid

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeClientMessage_Attack(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"attack","damage":25}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.Type != MsgAttack || msg.Damage != 25 {
		t.Errorf("Expected attack with damage 25, got %+v", msg)
	}
}

func TestDecodeClientMessage_VoiceAttack(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"voice_attack","damage":60,"transcript":"the weather is nice"}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.Transcript != "the weather is nice" {
		t.Errorf("Expected transcript to survive decoding, got %q", msg.Transcript)
	}
}

func TestDecodeClientMessage_Chat(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"chat","message":"hello"}`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if msg.Message != "hello" {
		t.Errorf("Expected message 'hello', got %q", msg.Message)
	}
}

func TestDecodeClientMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{broken`, ErrMalformedMessage},
		{"negative damage", `{"type":"attack","damage":-5}`, ErrMalformedMessage},
		{"negative voice damage", `{"type":"voice_attack","damage":-1}`, ErrMalformedMessage},
		{"empty chat", `{"type":"chat","message":""}`, ErrMalformedMessage},
		{"missing type", `{"damage":10}`, ErrUnknownType},
		{"unknown type", `{"type":"dance"}`, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestEncodeServer_Envelope(t *testing.T) {
	b, err := encodeServer(MsgBossDamaged, DamagePayload{
		Username:    "Alice",
		Damage:      40,
		RemainingHP: 60,
		Percentage:  60,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Username    string  `json:"username"`
			Damage      int     `json:"damage"`
			RemainingHP int     `json:"remainingHP"`
			Percentage  float64 `json:"percentage"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if decoded.Type != "boss_damaged" {
		t.Errorf("Expected type 'boss_damaged', got %q", decoded.Type)
	}
	if decoded.Data.RemainingHP != 60 || decoded.Data.Percentage != 60 {
		t.Errorf("Expected 60 HP at 60 percent, got %d at %f", decoded.Data.RemainingHP, decoded.Data.Percentage)
	}
}

func TestEncodeServer_TranscriptOmittedWhenEmpty(t *testing.T) {
	b, err := encodeServer(MsgBossDamaged, DamagePayload{Username: "Alice", Damage: 10, RemainingHP: 90, Percentage: 90})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(decoded["data"], &data); err != nil {
		t.Fatalf("Expected valid data object, got %v", err)
	}
	if _, ok := data["transcript"]; ok {
		t.Error("Expected empty transcript to be omitted from plain attacks")
	}
}
