package stack_test

import (
	"testing"

	"github.com/example/toycc/pkg/stack"
)

func TestStack(t *testing.T) {
	t.Run("push and pop in LIFO order", func(t *testing.T) {
		var s stack.Stack[int]
		s.Push(1)
		s.Push(2)
		s.Push(3)

		for _, want := range []int{3, 2, 1} {
			got, err := s.Pop()
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if got != want {
				t.Fatalf("got %d, want %d", got, want)
			}
		}
	})

	t.Run("top does not remove", func(t *testing.T) {
		var s stack.Stack[string]
		s.Push("a")
		s.Push("b")

		if top, _ := s.Top(); top != "b" {
			t.Fatalf("got %q, want %q", top, "b")
		}
		if s.Len() != 2 {
			t.Fatalf("got len %d, want 2", s.Len())
		}
	})

	t.Run("pop and top error on empty stack", func(t *testing.T) {
		var s stack.Stack[int]
		if _, err := s.Pop(); err == nil {
			t.Fatal("expected error popping empty stack")
		}
		if _, err := s.Top(); err == nil {
			t.Fatal("expected error peeking empty stack")
		}
	})
}
