package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lavjo97/eolia-voice-relay/config"
	"github.com/lavjo97/eolia-voice-relay/logging"
	"github.com/lavjo97/eolia-voice-relay/messages"
	"github.com/lavjo97/eolia-voice-relay/session"
)

// Server exposes the relay over HTTP: the voice WebSocket, a health probe
// and Prometheus metrics.
type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	logger         zerolog.Logger
}

// New builds the relay server around an existing session manager.
func New(cfg *config.Config, sessionManager *session.Manager) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		logger:         logging.WithComponent("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024, // audio chunks
			WriteBufferSize:   64 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start listens for connections until Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.config.Port).Bool("openai_configured", s.config.OpenAIConfigured()).
		Msg("voice relay listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown closes all sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down")
	s.sessionManager.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	clientSession, err := s.sessionManager.CreateSession(r.Context(), conn)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session refused")
		_ = conn.WriteJSON(messages.NewErrorMessage(err.Error()))
		conn.Close()
		return
	}

	s.logger.Info().Str("session_id", clientSession.ID).Msg("session started")
	clientSession.Start()

	<-clientSession.CloseChan

	_ = s.sessionManager.RemoveSession(context.Background(), clientSession.ID)
	s.logger.Info().Str("session_id", clientSession.ID).Msg("session closed")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","openai_configured":%t,"sessions":%d}`,
		s.config.OpenAIConfigured(), s.sessionManager.GetActiveSessionCount())
}
