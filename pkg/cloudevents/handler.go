package cloudevents

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jade/eventcore/pkg/cqrs"
	"github.com/jade/eventcore/pkg/registry"
)

// Status is the outcome reported in a Response.
type Status string

const (
	Accepted Status = "accepted"
	Rejected Status = "rejected"
	Failed   Status = "failed"
)

// Response is the body returned for every /api/cloudevents request.
type Response struct {
	ID      string `json:"id"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Publisher is the queued-mode dependency (component H); it durably
// enqueues a CloudEvent for a worker to consume later.
type Publisher interface {
	Publish(ctx context.Context, ce CloudEvent) error
}

// Handler serves the CloudEvents ingress HTTP surface.
type Handler struct {
	registry  *registry.Registry
	bus       *cqrs.Bus
	publisher Publisher
	log       *slog.Logger
}

// Option configures a Handler at construction.
type Option func(*Handler)

// WithLogger overrides the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler builds a Handler. publisher may be nil if the queued endpoint
// is never mounted.
func NewHandler(reg *registry.Registry, bus *cqrs.Bus, publisher Publisher, opts ...Option) *Handler {
	h := &Handler{registry: reg, bus: bus, publisher: publisher, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the ingress endpoints: direct-mode POST, queued-mode POST,
// and the schema listing.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.PostDirect)
	r.Post("/queued", h.PostQueued)
	r.Get("/schemas", h.GetSchemas)
	return r
}

// PostDirect implements the synchronous mode of §4.G: decode, resolve
// handler, invoke, translate the outcome to an HTTP status.
func (h *Handler) PostDirect(w http.ResponseWriter, r *http.Request) {
	ce, ok := h.decodeEnvelope(w, r)
	if !ok {
		return
	}

	err := Dispatch(r.Context(), h.registry, h.bus, ce)
	switch {
	case err == nil:
		h.respond(w, http.StatusAccepted, Response{ID: ce.ID, Status: Accepted})

	case isRejected(err):
		h.respond(w, http.StatusUnprocessableEntity, Response{ID: ce.ID, Status: Rejected, Message: err.Error()})

	default:
		h.respond(w, http.StatusInternalServerError, Response{ID: ce.ID, Status: Failed, Message: err.Error()})
	}
}

// isRejected reports whether err is one of the client-caused outcomes that
// map to 422 rather than 500: an invalid envelope, an unknown schema, a
// malformed payload, or a schema with no registered handler.
func isRejected(err error) bool {
	var envelopeInvalid *EnvelopeInvalid
	if errors.As(err, &envelopeInvalid) {
		return true
	}
	if errors.Is(err, registry.ErrUnknownSchema) {
		return true
	}
	var malformed *registry.MalformedPayload
	if errors.As(err, &malformed) {
		return true
	}
	var noHandler *cqrs.NoHandler
	return errors.As(err, &noHandler)
}

// PostQueued implements the asynchronous mode of §4.G: validate the
// envelope, then hand the whole CloudEvent to the publisher without
// decoding the command.
func (h *Handler) PostQueued(w http.ResponseWriter, r *http.Request) {
	ce, ok := h.decodeEnvelope(w, r)
	if !ok {
		return
	}

	if _, _, err := Validate(ce); err != nil {
		h.respond(w, http.StatusUnprocessableEntity, Response{ID: ce.ID, Status: Rejected, Message: err.Error()})
		return
	}

	if err := h.publisher.Publish(r.Context(), ce); err != nil {
		h.respond(w, http.StatusInternalServerError, Response{ID: ce.ID, Status: Failed, Message: err.Error()})
		return
	}

	h.respond(w, http.StatusAccepted, Response{ID: ce.ID, Status: Accepted})
}

// GetSchemas lists every schema URN the registry knows about (direct mode
// only — the registry is what decodes, so it's what enumerates).
func (h *Handler) GetSchemas(w http.ResponseWriter, r *http.Request) {
	schemas := h.registry.Schemas()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"schemas": schemas,
		"count":   len(schemas),
	})
}

func (h *Handler) decodeEnvelope(w http.ResponseWriter, r *http.Request) (CloudEvent, bool) {
	var ce CloudEvent
	if err := json.NewDecoder(r.Body).Decode(&ce); err != nil {
		h.respond(w, http.StatusBadRequest, Response{Status: Rejected, Message: "malformed cloudevents json: " + err.Error()})
		return CloudEvent{}, false
	}
	return ce, true
}

func (h *Handler) respond(w http.ResponseWriter, code int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("cloudevents: failed to encode response", "error", err)
	}
}
