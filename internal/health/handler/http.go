// Package handler serves the service banner, the database diagnostic and the readiness probe.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"crm-backend/internal/db"
)

// maxCollections caps the collection names reported by the diagnostic.
const maxCollections = 10

// maxErrorLen caps the storage error text exposed by the diagnostic.
const maxErrorLen = 50

// probeTimeout bounds each database call made by the diagnostic and readiness probe.
const probeTimeout = 5 * time.Second

// Diagnostic is the body of GET /test.
type Diagnostic struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      *string  `json:"database_url"`
	DatabaseName     *string  `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

// Server serves GET /, GET /test and GET /healthz.
type Server struct {
	inspector      db.Inspector
	databaseURLSet bool
}

// NewServer returns a health server. inspector is nil when no database is configured;
// databaseURLSet reports whether DATABASE_URL was provided.
func NewServer(inspector db.Inspector, databaseURLSet bool) *Server {
	return &Server{inspector: inspector, databaseURLSet: databaseURLSet}
}

// Register adds the health routes to r.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/", s.Root).Methods(http.MethodGet).Name("root")
	r.HandleFunc("/test", s.Test).Methods(http.MethodGet).Name("test")
	r.HandleFunc("/healthz", s.Healthz).Methods(http.MethodGet).Name("healthz")
}

// Root returns a static liveness banner.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "CRM Backend running"})
}

// Test reports backend and database status. It always responds 200; storage failures are
// described in the body, truncated.
func (s *Server) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.diagnose(r.Context()))
}

func (s *Server) diagnose(ctx context.Context) Diagnostic {
	d := Diagnostic{
		Backend:          "Running",
		Database:         "Not Available",
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
	}
	if s.inspector == nil {
		return d
	}
	urlStatus := "Not Set"
	if s.databaseURLSet {
		urlStatus = "Set"
	}
	name := s.inspector.Name()
	d.Database = "Available"
	d.DatabaseURL = &urlStatus
	d.DatabaseName = &name
	d.ConnectionStatus = "Connected"

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	names, err := s.inspector.CollectionNames(ctx)
	if err != nil {
		d.Database = "Connected but Error: " + truncate(err.Error(), maxErrorLen)
		return d
	}
	if len(names) > maxCollections {
		names = names[:maxCollections]
	}
	d.Collections = append(d.Collections, names...)
	d.Database = "Connected & Working"
	return d
}

// Healthz returns 200 when the database (if configured) answers a ping, 503 otherwise.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if s.inspector != nil {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		if err := s.inspector.Ping(ctx); err != nil {
			log.Printf("health: ping failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "serving"})
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("health: write response: %v", err)
	}
}
