package state

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

func TestMemoryStoreLoadUnknownCustomer(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "unknown"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load() error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreSaveThenLoad(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	s := NewSession("cust-1", testNow)
	s.Fields[contractx.FieldLocation] = "Nairobi"

	if err := store.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Fields[contractx.FieldLocation] != "Nairobi" {
		t.Fatalf("loaded location = %v", loaded.Fields[contractx.FieldLocation])
	}

	// The store hands out independent records.
	loaded.Fields[contractx.FieldLocation] = "Mombasa"
	again, err := store.Load(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.Fields[contractx.FieldLocation] != "Nairobi" {
		t.Fatalf("store record mutated through a loaded copy")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Save(context.Background(), NewSession("cust-1", testNow)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(context.Background(), "cust-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(context.Background(), "cust-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrSessionNotFound", err)
	}
}
