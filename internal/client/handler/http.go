// Package handler exposes the client record service over HTTP/JSON.
//
// Records are rendered from domain.Client: the storage _id becomes id and unset optional fields
// are omitted. An optional field cleared with an explicit null on PUT is stored as null but is
// also omitted from responses, so clients see no difference between null and absent.
// PUT rejects null for first_name, last_name, tags, newsletter_subscribed and lead_status
// with 422, since a stored record must always carry them.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"crm-backend/internal/client/domain"
	"crm-backend/internal/client/service"
	"crm-backend/internal/telemetry"
)

// maxBodyBytes caps request bodies; larger payloads are rejected as invalid.
const maxBodyBytes = 1 << 20

// ClientService is the record service used by the handler.
type ClientService interface {
	Create(ctx context.Context, payload []byte) (*domain.Client, error)
	List(ctx context.Context) ([]*domain.Client, error)
	Get(ctx context.Context, id string) (*domain.Client, error)
	Update(ctx context.Context, id string, payload []byte) (*domain.Client, error)
	Delete(ctx context.Context, id string) error
}

// errorBody is the JSON error envelope; Detail is a string or a list of field errors.
type errorBody struct {
	Detail any `json:"detail"`
}

// Handler serves /api/clients.
type Handler struct {
	svc ClientService
}

// NewHandler returns a client HTTP handler backed by svc.
func NewHandler(svc ClientService) *Handler {
	return &Handler{svc: svc}
}

// Register adds the client routes to r. Route names are used as metric and span labels.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/clients", h.List).Methods(http.MethodGet).Name("clients.list")
	r.HandleFunc("/api/clients", h.Create).Methods(http.MethodPost).Name("clients.create")
	r.HandleFunc("/api/clients/{id}", h.Get).Methods(http.MethodGet).Name("clients.get")
	r.HandleFunc("/api/clients/{id}", h.Update).Methods(http.MethodPut).Name("clients.update")
	r.HandleFunc("/api/clients/{id}", h.Delete).Methods(http.MethodDelete).Name("clients.delete")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readBody reads at most maxBodyBytes. Read failures, including oversize bodies, become a body validation error.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.ValidationError{Errors: []domain.FieldError{{Field: "body", Message: err.Error()}}}
	}
	return payload, nil
}

// writeError maps service and validation errors to status codes. Unexpected errors are logged
// with the request id and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: ve.Errors})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Client not found"})
	case errors.Is(err, service.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "Database not configured"})
	default:
		log.Printf("client: %s %s (request %s): %v", r.Method, r.URL.Path, telemetry.RequestIDFromContext(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal Server Error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("client: write response: %v", err)
	}
}
