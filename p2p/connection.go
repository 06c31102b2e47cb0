package p2p

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

// ReceiveFunc is called for every decoded inbound message along with
// the identifier of the connection it arrived on.
type ReceiveFunc func(msg *Message, peerID string)

// Conn wraps one established socket with a background line reader and a
// serialized writer. The transport layer is oblivious to game
// semantics; it only moves whole newline-terminated records.
type Conn struct {
	conn      net.Conn
	peerID    string
	onReceive ReceiveFunc
	onClose   func(peerID string)

	writeLock sync.Mutex
	running   *AtomicInt
}

// NewConn wraps the socket and starts its reader goroutine. onClose, if
// set, fires once when the reader loop ends for any reason.
func NewConn(nc net.Conn, peerID string, onReceive ReceiveFunc, onClose func(string)) *Conn {
	c := &Conn{
		conn:      nc,
		peerID:    peerID,
		onReceive: onReceive,
		onClose:   onClose,
		running:   NewAtomicInt(1),
	}
	go c.readLoop()
	return c
}

func (c *Conn) PeerID() string { return c.peerID }

func (c *Conn) Running() bool { return c.running.Get() == 1 }

// readLoop consumes newline-delimited records until end-of-stream or a
// read failure. Unparseable lines are dropped and the connection stays
// alive; only transport-level failures end the loop.
func (c *Conn) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for c.Running() && scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, ok := Decode(line)
		if !ok {
			logrus.Debugf("dropping malformed record from %s", c.peerID)
			continue
		}
		c.onReceive(msg, c.peerID)
	}
	c.running.Set(0)
	c.conn.Close()
	if c.onClose != nil {
		c.onClose(c.peerID)
	}
}

// Send writes one newline-terminated record. The per-connection lock
// guarantees concurrent senders interleave whole messages, never
// partial writes. A write failure deactivates the connection instead of
// surfacing to the caller; sends on a dead connection are no-ops.
func (c *Conn) Send(msg *Message) {
	if !c.Running() {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("encode outbound message: %s", err)
		return
	}
	data = append(data, '\n')

	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		logrus.WithFields(logrus.Fields{
			"peer": c.peerID,
		}).Warnf("write failed, deactivating connection: %s", err)
		c.running.Set(0)
	}
}

// Close performs a best-effort bidirectional shutdown. Safe to call
// multiple times.
func (c *Conn) Close() {
	c.running.Set(0)
	if tc, ok := c.conn.(*net.TCPConn); ok {
		tc.CloseRead()
		tc.CloseWrite()
	}
	c.conn.Close()
}
