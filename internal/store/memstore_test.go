package store

import (
	"context"
	"testing"
	"time"
)

func TestMemStoreGameRoundTrip(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if _, err := s.GetGame(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.SetGame(ctx, "g1", []byte(`{"id":"g1"}`), time.Minute); err != nil {
		t.Fatalf("SetGame: %v", err)
	}
	v, err := s.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if string(v) != `{"id":"g1"}` {
		t.Fatalf("unexpected value: %s", v)
	}

	if err := s.DelGame(ctx, "g1"); err != nil {
		t.Fatalf("DelGame: %v", err)
	}
	if _, err := s.GetGame(ctx, "g1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemStoreTTLExpiry(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if err := s.SetGame(ctx, "g1", []byte("x"), time.Millisecond); err != nil {
		t.Fatalf("SetGame: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := s.GetGame(ctx, "g1"); err != ErrNotFound {
		t.Fatalf("expected expired entry to read as ErrNotFound, got %v", err)
	}
}

func TestMemStorePublishSubscribe(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, Topic("g1"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := s.Publish(ctx, Topic("g1"), []byte("moveMade")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case payload := <-sub.Channel():
		if string(payload) != "moveMade" {
			t.Fatalf("unexpected payload: %s", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published payload")
	}
}
