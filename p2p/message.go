package p2p

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"peeruno/uno"
)

const timestampFormat = "2006-01-02 15:04:05"

// Message types carried on the wire.
const (
	TypePlay       = "play"
	TypeChat       = "chat"
	TypeState      = "state"
	TypeConnection = "connection"
	TypeControl    = "control"
)

// Payload action discriminators.
const (
	ActionJoin     = "join"
	ActionReady    = "ready"
	ActionSnapshot = "snapshot"
	ActionStart    = "start"
	ActionSync     = "sync"
	ActionDraw     = "draw"
	ActionPlay     = "play"
)

var ErrInvalidType = errors.New("invalid message type")

var messageTypes = map[string]bool{
	TypePlay:       true,
	TypeChat:       true,
	TypeState:      true,
	TypeConnection: true,
	TypeControl:    true,
}

// Message is the wire envelope: one JSON record per newline-delimited
// line. The payload shape depends on Type and, for most types, a nested
// action discriminator resolved by DecodePayload.
type Message struct {
	Timestamp string          `json:"timestamp"`
	Type      string          `json:"type"`
	Sender    string          `json:"sender"`
	Payload   json.RawMessage `json:"payload"`
}

// JoinPayload announces a joiner to the host. The room code is carried
// but currently never verified against the host's generated one.
type JoinPayload struct {
	Action string `json:"action"`
	Code   string `json:"code"`
	Name   string `json:"name"`
}

// ReadyPayload flips the sender's ready flag in every roster.
type ReadyPayload struct {
	Action string `json:"action"`
	Ready  bool   `json:"ready"`
}

// RosterPayload replaces the receiver's roster wholesale.
type RosterPayload struct {
	Action  string          `json:"action"`
	Players map[string]bool `json:"players"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

// StatePayload carries a full game snapshot, both for the initial deal
// (start) and for every subsequent reconciliation (sync).
type StatePayload struct {
	Action string    `json:"action"`
	Seed   int64     `json:"seed,omitempty"`
	State  *uno.Game `json:"state"`
}

// PlayPayload is a participant's move: a draw request or a card play
// with an optional chosen color for wilds.
type PlayPayload struct {
	Action string    `json:"action"`
	Card   *uno.Card `json:"card,omitempty"`
	Color  string    `json:"color,omitempty"`
}

// ControlPayload is reserved; control messages are recognized on the
// wire but have no handler.
type ControlPayload struct {
	Action string `json:"action"`
}

// Encode builds an envelope stamped with the local time. It fails only
// on an unrecognized message type or an unmarshalable payload.
func Encode(msgType, sender string, payload any) (*Message, error) {
	if !messageTypes[msgType] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, msgType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Timestamp: time.Now().Format(timestampFormat),
		Type:      msgType,
		Sender:    sender,
		Payload:   data,
	}, nil
}

// Decode parses one wire line. It returns false for anything that is
// not a JSON record with all four required fields; malformed input is
// dropped by the caller, never surfaced as a hard error.
func Decode(line []byte) (*Message, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, false
	}
	for _, field := range []string{"timestamp", "type", "sender", "payload"} {
		if _, ok := raw[field]; !ok {
			return nil, false
		}
	}
	msg := &Message{}
	if err := json.Unmarshal(line, msg); err != nil {
		return nil, false
	}
	return msg, true
}

// DecodePayload resolves the (type, action) pair into its concrete
// payload struct at the protocol boundary, so handlers switch on
// concrete types instead of string-keyed lookups with fallthrough.
func DecodePayload(msg *Message) (any, error) {
	var probe struct {
		Action string `json:"action"`
	}
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &probe); err != nil {
			return nil, err
		}
	}

	var payload any
	switch msg.Type {
	case TypeChat:
		payload = &ChatPayload{}
	case TypeConnection:
		switch probe.Action {
		case ActionJoin:
			payload = &JoinPayload{}
		case ActionReady:
			payload = &ReadyPayload{}
		case ActionSnapshot:
			payload = &RosterPayload{}
		default:
			return nil, fmt.Errorf("unknown connection action %q", probe.Action)
		}
	case TypeState:
		switch probe.Action {
		case ActionStart, ActionSync:
			payload = &StatePayload{}
		default:
			return nil, fmt.Errorf("unknown state action %q", probe.Action)
		}
	case TypePlay:
		switch probe.Action {
		case ActionDraw, ActionPlay:
			payload = &PlayPayload{}
		default:
			return nil, fmt.Errorf("unknown play action %q", probe.Action)
		}
	case TypeControl:
		payload = &ControlPayload{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// NewRoomCode generates a 6-digit zero-padded session code. The code is
// advisory: it is displayed by the host and carried in join payloads but
// never checked at join time.
func NewRoomCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}
