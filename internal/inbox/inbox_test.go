package inbox

import (
	"fmt"
	"sync"
	"testing"
)

func TestPushDrain_Order(t *testing.T) {
	in := New()
	in.Push("one")
	in.Push("two")
	in.Push("three")

	got := in.Drain()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDrain_Idempotent(t *testing.T) {
	in := New()
	in.Push("hi")

	first := in.Drain()
	if len(first) != 1 || first[0] != "hi" {
		t.Fatalf("first Drain() = %v, want [hi]", first)
	}

	second := in.Drain()
	if len(second) != 0 {
		t.Errorf("second Drain() = %v, want empty", second)
	}
}

func TestDrain_Empty(t *testing.T) {
	in := New()
	if got := in.Drain(); len(got) != 0 {
		t.Errorf("Drain() on empty inbox = %v, want empty", got)
	}
}

func TestLen(t *testing.T) {
	in := New()
	if in.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", in.Len())
	}
	in.Push("a")
	in.Push("b")
	if in.Len() != 2 {
		t.Errorf("Len() = %d, want 2", in.Len())
	}
	in.Drain()
	if in.Len() != 0 {
		t.Errorf("Len() after Drain = %d, want 0", in.Len())
	}
}

func TestConcurrentPush_NothingLost(t *testing.T) {
	in := New()
	const writers, perWriter = 8, 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				in.Push(fmt.Sprintf("w%d-%d", w, j))
			}
		}(w)
	}
	wg.Wait()

	if got := len(in.Drain()); got != writers*perWriter {
		t.Errorf("drained %d payloads, want %d", got, writers*perWriter)
	}
}
