package server

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/volleyhq/volley/internal/hub"
	"github.com/volleyhq/volley/internal/session"
	"github.com/volleyhq/volley/internal/storage"
)

// Server exposes the load-test API: session start/cancel/status, run
// history, saved-config CRUD, and the /ws observer endpoint.
type Server struct {
	addr  string
	mgr   *session.Manager
	hub   *hub.Hub
	store *storage.Store
}

func New(addr string, mgr *session.Manager, h *hub.Hub, store *storage.Store) *Server {
	return &Server{addr: addr, mgr: mgr, hub: h, store: store}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/test/start", s.handleStart)
	mux.HandleFunc("GET /api/test/history", s.handleHistory)
	mux.HandleFunc("GET /api/test/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/test/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/validation-types", s.handleValidationTypes)

	mux.HandleFunc("POST /api/config/save", s.handleSaveConfig)
	mux.HandleFunc("GET /api/config/list", s.handleListConfigs)
	mux.HandleFunc("GET /api/config/{id}", s.handleGetConfig)
	mux.HandleFunc("DELETE /api/config/{id}", s.handleDeleteConfig)

	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return enableCORS(mux)
}

// Start blocks serving the API until the listener fails.
func (s *Server) Start() error {
	log.WithField("addr", s.addr).Info("volley API server listening")
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// enableCORS lets browser UIs on other origins talk to the API.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
