package p2p

import (
	"fmt"
	"sync/atomic"
)

type SessionStatus int32

const (
	StatusIdle SessionStatus = iota
	StatusLobby
	StatusInGame
)

func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusLobby:
		return "LOBBY"
	case StatusInGame:
		return "IN-GAME"
	default:
		return "INVALID"
	}
}

type AtomicInt struct {
	value int32
}

func NewAtomicInt(value int32) *AtomicInt {
	return &AtomicInt{value: value}
}

func (a *AtomicInt) String() string { return fmt.Sprintf("%d", a.Get()) }

func (a *AtomicInt) Get() int32 { return atomic.LoadInt32(&a.value) }

func (a *AtomicInt) Set(value int32) { atomic.StoreInt32(&a.value, value) }
