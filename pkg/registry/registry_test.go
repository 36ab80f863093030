package registry_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jade/eventcore/pkg/registry"
)

type createCustomer struct {
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
}

func (createCustomer) CommandSchemaURN() string {
	return "urn:schema:jade:command:customer:create:1"
}

type updateCustomer struct {
	CustomerID string `json:"customerId"`
}

func (updateCustomer) CommandSchemaURN() string {
	return "urn:schema:jade:command:customer:update:1"
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	var handled []registry.Command
	h := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error {
		handled = append(handled, cmd)
		return nil
	})

	r := registry.New()
	r.Register(h, createCustomer{}, updateCustomer{})

	t.Run("TryGetType", func(t *testing.T) {
		typ, ok := r.TryGetType("urn:schema:jade:command:customer:create:1")
		if !ok {
			t.Fatal("expected type to be found")
		}
		if typ != reflect.TypeOf(createCustomer{}) {
			t.Fatalf("unexpected type: %v", typ)
		}
	})

	t.Run("UnknownSchema", func(t *testing.T) {
		_, ok := r.TryGetType("urn:schema:jade:command:customer:archive:1")
		if ok {
			t.Fatal("expected unknown schema to miss")
		}
	})

	t.Run("DeserializeAndHandle", func(t *testing.T) {
		cmd, err := r.DeserializeCommand("urn:schema:jade:command:customer:create:1", []byte(`{"customerId":"c1","name":"Alice"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		typed, ok := cmd.(createCustomer)
		if !ok || typed.CustomerID != "c1" || typed.Name != "Alice" {
			t.Fatalf("unexpected decode result: %#v", cmd)
		}

		handler, ok := r.GetHandler(reflect.TypeOf(cmd))
		if !ok {
			t.Fatal("expected handler to be found")
		}
		if err := handler.Handle(context.Background(), cmd); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(handled) != 1 {
			t.Fatalf("expected handler invoked once, got %d", len(handled))
		}
	})

	t.Run("DeserializeUnknownSchema", func(t *testing.T) {
		_, err := r.DeserializeCommand("urn:schema:jade:command:customer:archive:1", []byte(`{}`))
		if !errors.Is(err, registry.ErrUnknownSchema) {
			t.Fatalf("expected ErrUnknownSchema, got %v", err)
		}
	})

	t.Run("DeserializeMalformedPayload", func(t *testing.T) {
		_, err := r.DeserializeCommand("urn:schema:jade:command:customer:create:1", []byte(`not json`))
		var malformed *registry.MalformedPayload
		if !errors.As(err, &malformed) {
			t.Fatalf("expected MalformedPayload, got %v", err)
		}
	})
}

func TestRegistryDuplicateURNLastWins(t *testing.T) {
	r := registry.New()
	h1 := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error { return nil })
	h2 := registry.HandlerFunc(func(ctx context.Context, cmd registry.Command) error { return nil })

	r.Register(h1, createCustomer{})
	r.Register(h2, createCustomer{})

	typ, _ := r.TryGetType("urn:schema:jade:command:customer:create:1")
	got, ok := r.GetHandler(typ)
	if !ok {
		t.Fatal("expected handler registered")
	}
	if reflect.ValueOf(got).Pointer() != reflect.ValueOf(h2).Pointer() {
		t.Fatal("expected second registration to win")
	}
}
