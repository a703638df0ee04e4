// Package stream exposes the hub over HTTP: REST endpoints for the active
// signal set, history and stats, and a WebSocket endpoint that pushes hub
// events to remote subscribers. Delivery over the socket is at-least-once;
// consumers dedup on signal id.
package stream

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/openquant-labs/signalfan/internal/hub"
	"github.com/openquant-labs/signalfan/internal/logger"
	"github.com/openquant-labs/signalfan/internal/types"
)

const writeTimeout = 10 * time.Second

// Server pushes hub events to WebSocket clients and serves the hub's read
// API over REST.
type Server struct {
	hub *hub.Hub
	log *logger.Logger

	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener

	wsMu    sync.Mutex
	wsConns map[*websocket.Conn]struct{}
}

// NewServer creates a stream server over the hub.
func NewServer(signalHub *hub.Hub, log *logger.Logger) *Server {
	return &Server{
		hub: signalHub,
		log: log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		wsConns: make(map[*websocket.Conn]struct{}),
	}
}

// Router builds the HTTP routes. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/v1/signals/active", s.handleActiveSignals).Methods("GET")
	router.HandleFunc("/api/v1/signals/history", s.handleHistory).Methods("GET")
	router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET")
	router.HandleFunc("/ws/signals", s.handleWebSocket)

	return router
}

// Start listens on the address and serves in the background. An empty
// address or ":0" picks a random port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Error("stream server error", zap.Error(err))
		}
	}()

	s.log.Info("stream server started", zap.String("address", s.Address()))

	return nil
}

// Address returns the bound address, or empty before Start.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// Stop closes every WebSocket connection and shuts the server down.
func (s *Server) Stop() error {
	s.wsMu.Lock()
	for conn := range s.wsConns {
		conn.Close()
	}

	s.wsConns = make(map[*websocket.Conn]struct{})
	s.wsMu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActiveSignals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.ActiveSignals())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})

			return
		}

		limit = parsed
	}

	writeJSON(w, http.StatusOK, s.hub.History(limit))
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.GetStats())
}

// handleWebSocket upgrades the connection and pumps hub events to it until
// the client disconnects. Optional symbol and action query parameters narrow
// the subscription.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.wsMu.Lock()
	s.wsConns[conn] = struct{}{}
	s.wsMu.Unlock()

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConns, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	events, unsubscribe := s.hub.Subscribe(filter)
	defer unsubscribe()

	// The read pump only exists to observe the close handshake.
	closed := make(chan struct{})

	go func() {
		defer close(closed)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))

			if err := conn.WriteJSON(event); err != nil {
				s.log.Debug("websocket write failed, dropping client", zap.Error(err))

				return
			}
		}
	}
}

func filterFromQuery(r *http.Request) hub.Filter {
	query := r.URL.Query()

	var filter hub.Filter

	if symbols, ok := query["symbol"]; ok {
		filter.Symbols = symbols
	}

	if actions, ok := query["action"]; ok {
		for _, action := range actions {
			filter.Actions = append(filter.Actions, types.SignalAction(action))
		}
	}

	return filter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
