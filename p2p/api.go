package p2p

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"peeruno/auth"
	"peeruno/uno"
)

type apiFunc func(w http.ResponseWriter, r *http.Request) error

func makeHTTPHandlerFunc(f apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			JSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		}
	}
}

func JSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIServer is the boundary the rendering/input front end talks to. It
// never touches game state directly: every call goes through the node,
// and every read drains the inbox first so the snapshot is current.
type APIServer struct {
	listenAddr string
	p2pPort    int
	store      *auth.Store

	sessLock sync.Mutex
	sessions map[string]string // token -> username

	nodeLock sync.RWMutex
	node     *Node
}

func NewAPIServer(listenAddr string, p2pPort int, store *auth.Store) *APIServer {
	return &APIServer{
		listenAddr: listenAddr,
		p2pPort:    p2pPort,
		store:      store,
		sessions:   map[string]string{},
	}
}

func (s *APIServer) Run() error {
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/api/register", makeHTTPHandlerFunc(s.handleRegister)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/login", makeHTTPHandlerFunc(s.handleLogin)).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/host", makeHTTPHandlerFunc(s.handleHost)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/join", makeHTTPHandlerFunc(s.handleJoin)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/ready", makeHTTPHandlerFunc(s.handleReady)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/start", makeHTTPHandlerFunc(s.handleStart)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/draw", makeHTTPHandlerFunc(s.handleDraw)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/play", makeHTTPHandlerFunc(s.handlePlay)).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/chat", makeHTTPHandlerFunc(s.handleSendChat)).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/chat", makeHTTPHandlerFunc(s.handleGetChat)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/players", makeHTTPHandlerFunc(s.handleGetPlayers)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/state", makeHTTPHandlerFunc(s.handleGetState)).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/health", makeHTTPHandlerFunc(s.handleHealth)).Methods("GET", "OPTIONS")

	logrus.WithFields(logrus.Fields{
		"addr": s.listenAddr,
	}).Info("API server starting...")

	return http.ListenAndServe(s.listenAddr, r)
}

func (s *APIServer) currentNode() (*Node, error) {
	s.nodeLock.RLock()
	defer s.nodeLock.RUnlock()
	if s.node == nil {
		return nil, errors.New("no active session; host or join first")
	}
	return s.node, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type hostRequest struct {
	Name string `json:"name"`
	IP   string `json:"ip,omitempty"`
}

type joinRequest struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Code string `json:"code"`
}

type readyRequest struct {
	Ready bool `json:"ready"`
}

type playRequest struct {
	Card  uno.Card `json:"card"`
	Color string   `json:"color,omitempty"`
}

type chatRequest struct {
	Text string `json:"text"`
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) error {
	status := StatusIdle
	if node, err := s.currentNode(); err == nil {
		status = node.Status()
	}
	return JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"session": status.String(),
	})
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	if err := s.store.Register(req.Username, req.Password); err != nil {
		return err
	}
	return JSON(w, http.StatusOK, map[string]string{
		"status":   "REGISTERED",
		"username": req.Username,
	})
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	if err := s.store.Login(req.Username, req.Password); err != nil {
		return err
	}
	token := uuid.NewV4().String()
	s.sessLock.Lock()
	s.sessions[token] = req.Username
	s.sessLock.Unlock()
	return JSON(w, http.StatusOK, map[string]string{
		"status":   "LOGGED-IN",
		"username": req.Username,
		"token":    token,
	})
}

func (s *APIServer) handleHost(w http.ResponseWriter, r *http.Request) error {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	if req.Name == "" {
		return errors.New("name required")
	}
	if req.IP == "" {
		req.IP = "0.0.0.0"
	}

	node := NewNode(NodeConfig{Username: req.Name, Port: s.p2pPort})
	if err := node.StartHost(req.IP); err != nil {
		return err
	}

	s.nodeLock.Lock()
	if s.node != nil {
		s.node.Close()
	}
	s.node = node
	s.nodeLock.Unlock()

	return JSON(w, http.StatusOK, map[string]string{
		"status": "HOSTING",
		"addr":   node.ListenAddr(),
		"code":   node.RoomCode(),
	})
}

func (s *APIServer) handleJoin(w http.ResponseWriter, r *http.Request) error {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	if req.Name == "" || req.Host == "" {
		return errors.New("name and host required")
	}

	node := NewNode(NodeConfig{Username: req.Name, Port: s.p2pPort})
	if err := node.Join(req.Host, req.Code); err != nil {
		return err
	}

	s.nodeLock.Lock()
	if s.node != nil {
		s.node.Close()
	}
	s.node = node
	s.nodeLock.Unlock()

	return JSON(w, http.StatusOK, map[string]string{
		"status": "JOINED",
		"host":   req.Host,
	})
}

func (s *APIServer) handleReady(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	node.PumpMessages()
	node.SetReady(req.Ready)
	return JSON(w, http.StatusOK, map[string]any{
		"status": "READY",
		"ready":  req.Ready,
	})
}

func (s *APIServer) handleStart(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	node.PumpMessages()
	if err := node.TryStartGame(); err != nil {
		return err
	}
	return JSON(w, http.StatusOK, map[string]string{"status": "STARTED"})
}

func (s *APIServer) handleDraw(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	node.PumpMessages()
	node.RequestDraw()
	return JSON(w, http.StatusOK, map[string]string{"status": "DRAW-REQUESTED"})
}

func (s *APIServer) handlePlay(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	node.PumpMessages()
	node.RequestPlay(req.Card, req.Color)
	return JSON(w, http.StatusOK, map[string]any{
		"status": "PLAY-REQUESTED",
		"card":   req.Card,
	})
}

func (s *APIServer) handleSendChat(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return fmt.Errorf("invalid request body: %s", err)
	}
	node.PumpMessages()
	node.SendChat(req.Text)
	return JSON(w, http.StatusOK, map[string]string{"status": "SENT"})
}

func (s *APIServer) handleGetChat(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	n := 50
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid n: %s", v)
		}
		n = parsed
	}
	node.PumpMessages()
	return JSON(w, http.StatusOK, map[string]any{
		"lines": node.ChatTail(n),
	})
}

func (s *APIServer) handleGetPlayers(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	node.PumpMessages()
	return JSON(w, http.StatusOK, map[string]any{
		"players": node.PlayersSnapshot(),
		"isHost":  node.IsHost(),
		"code":    node.RoomCode(),
		"started": node.Started(),
		"session": node.Status().String(),
	})
}

func (s *APIServer) handleGetState(w http.ResponseWriter, r *http.Request) error {
	node, err := s.currentNode()
	if err != nil {
		return err
	}
	node.PumpMessages()
	state := node.StateJSON()
	if state == nil {
		return JSON(w, http.StatusOK, map[string]any{"state": nil})
	}
	return JSON(w, http.StatusOK, map[string]any{
		"state": json.RawMessage(state),
	})
}
