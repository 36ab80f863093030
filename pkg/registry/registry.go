// Package registry maps schema URNs to command types and command types to
// handlers, and decodes JSON command payloads by schema (component E).
package registry

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/jade/eventcore/pkg/codec"
)

// Command is implemented by every concrete command payload type. Its
// schema URN is a static association, read off the type via a zero value,
// never off live state.
type Command interface {
	CommandSchemaURN() string
}

// Handler processes one decoded command.
type Handler interface {
	Handle(ctx context.Context, cmd Command) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, cmd Command) error

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) error { return f(ctx, cmd) }

// Registry holds the schema-URN -> type and type -> handler maps.
type Registry struct {
	mu            sync.RWMutex
	urnToType     map[string]reflect.Type
	typeToHandler map[reflect.Type]Handler
	codec         codec.Policy
	log           *slog.Logger
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithLogger overrides the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithCodec overrides the JSON policy used to decode payloads; defaults to
// codec.Default, the single process-wide policy.
func WithCodec(p codec.Policy) Option {
	return func(r *Registry) { r.codec = p }
}

// New builds an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		urnToType:     make(map[string]reflect.Type),
		typeToHandler: make(map[reflect.Type]Handler),
		codec:         codec.Default,
		log:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates every prototype's static schema URN and runtime type
// with handler. A second registration under a URN already claimed
// overwrites the prior mapping (last-wins) and is logged.
func (r *Registry) Register(handler Handler, prototypes ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range prototypes {
		urn := p.CommandSchemaURN()
		t := reflect.TypeOf(p)

		if existing, ok := r.urnToType[urn]; ok {
			r.log.Warn("registry: schema urn re-registered",
				"urn", urn, "previous", existing.String(), "new", t.String())
		}
		r.urnToType[urn] = t
		r.typeToHandler[t] = handler
	}
}

// TryGetType looks up the command type registered under schema.
func (r *Registry) TryGetType(schema string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.urnToType[schema]
	return t, ok
}

// GetHandler looks up the handler registered for a command type.
func (r *Registry) GetHandler(t reflect.Type) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.typeToHandler[t]
	return h, ok
}

// Schemas returns every schema URN currently registered, for the
// CloudEvents ingress's schema-listing endpoint. Order is unspecified.
func (r *Registry) Schemas() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	urns := make([]string, 0, len(r.urnToType))
	for urn := range r.urnToType {
		urns = append(urns, urn)
	}
	return urns
}

// DeserializeCommand locates the type registered under schema and decodes
// payload into a new instance of it using the registry's codec policy.
func (r *Registry) DeserializeCommand(schema string, payload []byte) (Command, error) {
	t, ok := r.TryGetType(schema)
	if !ok {
		return nil, ErrUnknownSchema
	}

	ptr := reflect.New(t)
	if err := r.codec.Unmarshal(payload, ptr.Interface()); err != nil {
		return nil, &MalformedPayload{Cause: err}
	}

	cmd, ok := ptr.Elem().Interface().(Command)
	if !ok {
		// Registered types always implement Command (Register requires it
		// for every prototype), so this is a programming error, not a
		// runtime input error.
		panic("registry: registered type " + t.String() + " no longer implements Command")
	}
	return cmd, nil
}
