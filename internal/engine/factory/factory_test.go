package factory

import (
	"errors"
	"testing"

	"github.com/cfiminer/miner/internal/engine"
)

func TestCreateEngine_AllKinds(t *testing.T) {
	f := NewFactory[string]()
	for _, kind := range f.Kinds() {
		eng, err := f.CreateEngine(kind)
		if err != nil {
			t.Fatalf("CreateEngine(%s): %v", kind, err)
		}
		if eng == nil {
			t.Fatalf("CreateEngine(%s) returned nil engine", kind)
		}
	}
}

func TestCreateEngine_UnknownKind(t *testing.T) {
	f := NewFactory[string]()
	eng, err := f.CreateEngine("apriori")
	if eng != nil {
		t.Fatal("expected nil engine for unknown kind")
	}
	if !errors.Is(err, engine.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
