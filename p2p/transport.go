package p2p

import (
	"net"

	"github.com/sirupsen/logrus"
)

// TCPTransport owns a host's listening socket. Every accepted socket is
// wrapped in a Conn and handed to the registered callback; the accept
// loop runs until the listener is closed.
type TCPTransport struct {
	listenAddr string
	listener   net.Listener

	onReceive ReceiveFunc
	onConn    func(*Conn)
	onClose   func(peerID string)
}

func NewTCPTransport(listenAddr string, onReceive ReceiveFunc, onConn func(*Conn), onClose func(string)) *TCPTransport {
	return &TCPTransport{
		listenAddr: listenAddr,
		onReceive:  onReceive,
		onConn:     onConn,
		onClose:    onClose,
	}
}

func (t *TCPTransport) ListenAndAccept() error {
	ln, err := net.Listen("tcp", t.listenAddr)
	if err != nil {
		return err
	}
	t.listener = ln
	go t.acceptLoop()
	logrus.WithFields(logrus.Fields{
		"addr": ln.Addr().String(),
	}).Info("listening for peers")
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (t *TCPTransport) Addr() string {
	if t.listener == nil {
		return t.listenAddr
	}
	return t.listener.Addr().String()
}

func (t *TCPTransport) acceptLoop() {
	for {
		nc, err := t.listener.Accept()
		if err != nil {
			logrus.Debugf("accept loop stopped: %s", err)
			return
		}
		peerID := nc.RemoteAddr().String()
		t.onConn(NewConn(nc, peerID, t.onReceive, t.onClose))
	}
}

func (t *TCPTransport) Close() error {
	if t.listener == nil {
		return nil
	}
	return t.listener.Close()
}
