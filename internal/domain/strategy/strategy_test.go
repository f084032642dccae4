package strategy

import (
	"context"
	"strconv"
	"testing"
)

func TestUniformRandom_ReturnsMoveInRange(t *testing.T) {
	t.Parallel()

	s := NewUniformRandom()
	for i := 0; i < 50; i++ {
		move, err := s.ChooseMove(context.Background(), View{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n, err := strconv.Atoi(move)
		if err != nil {
			t.Fatalf("expected numeric move, got %q", move)
		}
		if n < 1 || n > 10 {
			t.Fatalf("expected move in [1,10], got %d", n)
		}
	}
}

func TestUniformRandom_ObservesCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewUniformRandom()
	if _, err := s.ChooseMove(ctx, View{}); err == nil {
		t.Fatalf("expected an error for an already-cancelled context")
	}
}
