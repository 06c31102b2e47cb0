package p2p

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"peeruno/chat"
	"peeruno/uno"
)

const (
	DefaultPort = 5007

	minPlayers  = 4
	joinTimeout = 5 * time.Second

	stateWaitTimeout = 15 * time.Second
	stateWaitPoll    = 50 * time.Millisecond
)

var (
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = fmt.Errorf("at least %d players required", minPlayers)
	ErrNotAllReady      = errors.New("not all players are ready")
	ErrAlreadyStarted   = errors.New("game already started")
)

type inbound struct {
	msg  *Message
	from string
}

// NodeConfig carries the session parameters fixed at construction.
type NodeConfig struct {
	Username string
	Port     int
}

// Node is one participant's session: it either hosts (listening for
// joiners) or joins a host, owns the only live copy of the game state,
// and routes every inbound message through a single consumer.
//
// Each connection feeds the inbox from its own reader goroutine; all
// roster and game mutation happens on whichever goroutine drains the
// inbox via PumpMessages. That single-writer discipline, plus the state
// lock guarding the UI snapshot reads, is the whole concurrency story.
type Node struct {
	NodeConfig

	transport *TCPTransport
	isHost    bool
	roomCode  string

	connLock sync.RWMutex
	conns    map[string]*Conn

	inbox chan inbound

	roster *Roster
	chat   *chat.Log
	status *AtomicInt

	stateLock sync.RWMutex
	game      *uno.Game
	started   bool
}

func NewNode(cfg NodeConfig) *Node {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	return &Node{
		NodeConfig: cfg,
		conns:      map[string]*Conn{},
		inbox:      make(chan inbound, 256),
		roster:     NewRoster(),
		chat:       chat.NewLog(chat.DefaultCapacity),
		status:     NewAtomicInt(int32(StatusIdle)),
	}
}

// StartHost binds the listening socket, registers this node in its own
// roster and generates the advisory room code. A bind failure is
// returned to the caller; it is the only unrecoverable session error.
func (n *Node) StartHost(hostIP string) error {
	addr := fmt.Sprintf("%s:%d", hostIP, n.Port)
	tr := NewTCPTransport(addr, n.enqueue, n.addConn, n.removeConn)
	if err := tr.ListenAndAccept(); err != nil {
		return fmt.Errorf("host bind failed: %w", err)
	}
	n.transport = tr
	n.isHost = true
	n.roomCode = NewRoomCode()
	n.roster.Add(n.Username)
	n.status.Set(int32(StatusLobby))
	logrus.WithFields(logrus.Fields{
		"addr": tr.Addr(),
		"code": n.roomCode,
		"name": n.Username,
	}).Info("hosting session")
	return nil
}

// Join dials the host and announces this participant with a
// connection/join envelope carrying the room code and display name.
// The roster arrives back as a broadcast snapshot.
func (n *Node) Join(hostIP, code string) error {
	addr := hostIP
	if _, _, err := net.SplitHostPort(hostIP); err != nil {
		addr = fmt.Sprintf("%s:%d", hostIP, n.Port)
	}
	nc, err := net.DialTimeout("tcp", addr, joinTimeout)
	if err != nil {
		return fmt.Errorf("join %s failed: %w", addr, err)
	}
	conn := NewConn(nc, addr, n.enqueue, n.removeConn)
	n.addConn(conn)
	n.status.Set(int32(StatusLobby))

	hello, err := Encode(TypeConnection, n.Username, JoinPayload{
		Action: ActionJoin,
		Code:   code,
		Name:   n.Username,
	})
	if err != nil {
		return err
	}
	conn.Send(hello)
	logrus.WithFields(logrus.Fields{
		"host": addr,
		"code": code,
		"name": n.Username,
	}).Info("joined session")
	return nil
}

func (n *Node) IsHost() bool { return n.isHost }

func (n *Node) RoomCode() string { return n.roomCode }

func (n *Node) Status() SessionStatus { return SessionStatus(n.status.Get()) }

func (n *Node) ChatTail(k int) []string { return n.chat.Tail(k) }

// PlayersSnapshot returns the roster as name → ready.
func (n *Node) PlayersSnapshot() map[string]bool {
	return n.roster.Snapshot()
}

// Started reports whether a deal has been distributed.
func (n *Node) Started() bool {
	n.stateLock.RLock()
	defer n.stateLock.RUnlock()
	return n.started
}

// Game returns the live game state. Callers must treat it as read-only;
// it is replaced wholesale on every sync.
func (n *Node) Game() *uno.Game {
	n.stateLock.RLock()
	defer n.stateLock.RUnlock()
	return n.game
}

// StateJSON marshals the current game state for the UI, or nil before
// the first snapshot arrives.
func (n *Node) StateJSON() []byte {
	n.stateLock.RLock()
	defer n.stateLock.RUnlock()
	if n.game == nil {
		return nil
	}
	data, err := n.game.Snapshot()
	if err != nil {
		logrus.Errorf("snapshot game state: %s", err)
		return nil
	}
	return data
}

func (n *Node) addConn(c *Conn) {
	n.connLock.Lock()
	defer n.connLock.Unlock()
	n.conns[c.PeerID()] = c
	logrus.WithFields(logrus.Fields{
		"peer": c.PeerID(),
	}).Info("connection registered")
}

func (n *Node) removeConn(peerID string) {
	n.connLock.Lock()
	defer n.connLock.Unlock()
	delete(n.conns, peerID)
	logrus.WithFields(logrus.Fields{
		"peer": peerID,
	}).Info("peer disconnected and removed")
}

// enqueue is every connection's receive callback. A full inbox drops
// the message rather than blocking a reader goroutine.
func (n *Node) enqueue(msg *Message, from string) {
	select {
	case n.inbox <- inbound{msg: msg, from: from}:
	default:
		logrus.Warnf("inbox full, dropping %s message from %s", msg.Type, from)
	}
}

// Broadcast sends the envelope to every currently-registered
// connection. There is no per-recipient targeting: a host reaches all
// joiners, a joiner reaches only the host.
func (n *Node) Broadcast(msg *Message) {
	n.connLock.RLock()
	conns := make([]*Conn, 0, len(n.conns))
	for _, c := range n.conns {
		conns = append(conns, c)
	}
	n.connLock.RUnlock()
	for _, c := range conns {
		c.Send(msg)
	}
}

func (n *Node) broadcastPayload(msgType string, payload any) {
	msg, err := Encode(msgType, n.Username, payload)
	if err != nil {
		logrus.Errorf("encode %s broadcast: %s", msgType, err)
		return
	}
	n.Broadcast(msg)
}

// SendChat appends locally and broadcasts; the local append is the
// sender's own echo since broadcasts never loop back.
func (n *Node) SendChat(text string) {
	n.chat.Append(n.Username, text)
	n.broadcastPayload(TypeChat, ChatPayload{Text: text})
}

// SetReady flips this node's ready flag and announces it.
func (n *Node) SetReady(ready bool) {
	n.roster.SetReady(n.Username, ready)
	n.broadcastPayload(TypeConnection, ReadyPayload{Action: ActionReady, Ready: ready})
}

// RequestDraw broadcasts a draw request. Peers validate it against
// their own copy of the state and answer with a sync snapshot.
func (n *Node) RequestDraw() {
	n.broadcastPayload(TypePlay, PlayPayload{Action: ActionDraw})
}

// RequestPlay broadcasts a card play optimistically; the authoritative
// result comes back as a sync snapshot from whichever peer applies it.
func (n *Node) RequestPlay(card uno.Card, chosenColor string) {
	n.broadcastPayload(TypePlay, PlayPayload{
		Action: ActionPlay,
		Card:   &card,
		Color:  chosenColor,
	})
}

// TryStartGame deals and distributes a fresh game. Host only; requires
// at least minPlayers registered participants, all ready.
func (n *Node) TryStartGame() error {
	if !n.isHost {
		return ErrNotHost
	}
	if n.Started() {
		return ErrAlreadyStarted
	}
	if n.roster.Len() < minPlayers {
		return ErrNotEnoughPlayers
	}
	if !n.roster.AllReady() {
		return ErrNotAllReady
	}

	seed := rand.Int63()
	game := uno.NewGame(seed)
	if err := game.Setup(n.roster.Names(), uno.DefaultHandSize); err != nil {
		return err
	}

	n.stateLock.Lock()
	n.game = game
	n.started = true
	n.stateLock.Unlock()
	n.status.Set(int32(StatusInGame))

	logrus.WithFields(logrus.Fields{
		"players": n.roster.Len(),
		"seed":    seed,
	}).Info("game started")
	n.broadcastPayload(TypeState, StatePayload{Action: ActionStart, Seed: seed, State: game})
	return nil
}

// AwaitInitialState blocks a joiner until the host's first snapshot
// arrives, polling the inbox. After the timeout it installs an empty
// default state instead of failing hard and reports false.
func (n *Node) AwaitInitialState() bool {
	deadline := time.Now().Add(stateWaitTimeout)
	for time.Now().Before(deadline) {
		n.PumpMessages()
		if n.Game() != nil {
			return true
		}
		time.Sleep(stateWaitPoll)
	}
	logrus.Warn("timed out waiting for initial state, proceeding with empty game")
	n.stateLock.Lock()
	if n.game == nil {
		n.game = uno.NewGame(time.Now().UnixNano())
	}
	n.stateLock.Unlock()
	return false
}

// PumpMessages drains the inbox without blocking, handling one message
// at a time on the caller's goroutine.
func (n *Node) PumpMessages() {
	for {
		select {
		case in := <-n.inbox:
			n.handleMessage(in.msg, in.from)
		default:
			return
		}
	}
}

func (n *Node) handleMessage(msg *Message, from string) {
	payload, err := DecodePayload(msg)
	if err != nil {
		logrus.Debugf("dropping undecodable %s payload from %s: %s", msg.Type, from, err)
		return
	}

	switch p := payload.(type) {
	case *ChatPayload:
		n.chat.Append(msg.Sender, p.Text)

	case *JoinPayload:
		name := p.Name
		if name == "" {
			name = msg.Sender
		}
		n.roster.Add(name)
		logrus.WithFields(logrus.Fields{
			"name": name,
			"code": p.Code,
		}).Info("participant joined")
		n.broadcastPayload(TypeConnection, RosterPayload{
			Action:  ActionSnapshot,
			Players: n.roster.Snapshot(),
		})

	case *ReadyPayload:
		n.roster.SetReady(msg.Sender, p.Ready)

	case *RosterPayload:
		n.roster.Replace(p.Players)

	case *StatePayload:
		n.handleState(p)

	case *PlayPayload:
		n.handlePlay(msg.Sender, p)

	case *ControlPayload:
		logrus.Debugf("ignoring control message from %s", msg.Sender)
	}
}

func (n *Node) handleState(p *StatePayload) {
	if p.State == nil {
		return
	}
	n.stateLock.Lock()
	defer n.stateLock.Unlock()
	switch p.Action {
	case ActionStart:
		n.game = p.State
		n.started = true
		n.status.Set(int32(StatusInGame))
	case ActionSync:
		// sync only ever replaces an existing game
		if n.game != nil {
			n.game = p.State
		}
	}
}

// handlePlay applies a peer's move against the local copy and, if it
// holds up, re-broadcasts a fresh sync snapshot. Illegal plays are
// dropped silently; the submitter never hears back over the wire.
func (n *Node) handlePlay(sender string, p *PlayPayload) {
	n.stateLock.Lock()
	defer n.stateLock.Unlock()
	if n.game == nil {
		return
	}

	switch p.Action {
	case ActionDraw:
		if n.game.CurrentTurn() != sender {
			return
		}
		if err := n.game.Draw(sender, 1); err != nil {
			logrus.Errorf("draw for %s failed: %s", sender, err)
			return
		}
		n.syncStateLocked()

	case ActionPlay:
		if p.Card == nil {
			return
		}
		if err := n.game.Validate(sender, *p.Card, p.Color); err != nil {
			logrus.WithFields(logrus.Fields{
				"sender": sender,
				"card":   p.Card.String(),
			}).Debugf("rejected play: %s", err)
			return
		}
		n.game.Apply(sender, *p.Card, p.Color)
		n.syncStateLocked()
	}
}

// syncStateLocked broadcasts the current state as a sync snapshot.
// Callers hold stateLock.
func (n *Node) syncStateLocked() {
	n.broadcastPayload(TypeState, StatePayload{Action: ActionSync, State: n.game})
}

// Close tears the session down: stop accepting, close every
// connection. A dropped peer is permanent until it re-joins a new
// session; there is no reconnection protocol.
func (n *Node) Close() {
	if n.transport != nil {
		n.transport.Close()
	}
	n.connLock.Lock()
	defer n.connLock.Unlock()
	for _, c := range n.conns {
		c.Close()
	}
	n.conns = map[string]*Conn{}
}

// ListenAddr returns the bound host address, or "" for a joiner.
func (n *Node) ListenAddr() string {
	if n.transport == nil {
		return ""
	}
	return n.transport.Addr()
}
