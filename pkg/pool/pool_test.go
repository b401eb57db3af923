package pool

import (
	"testing"
)

func TestSizeClass(t *testing.T) {
	cases := map[int]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 64: 6, 65: 7, 1000: 10}
	for n, want := range cases {
		if got := sizeClass(n); got != want {
			t.Errorf("sizeClass(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestGetWords(t *testing.T) {
	t.Run("length and class capacity", func(t *testing.T) {
		w := GetWords(100)
		if len(w) != 100 {
			t.Fatalf("len = %d, want 100", len(w))
		}
		if cap(w) != 128 {
			t.Errorf("cap = %d, want 128", cap(w))
		}
		PutWords(w)
	})

	t.Run("zero length", func(t *testing.T) {
		if w := GetWords(0); w != nil {
			t.Errorf("expected nil, got len %d", len(w))
		}
	})

	t.Run("reuse after put", func(t *testing.T) {
		w := GetWords(10)
		w[0] = 42
		PutWords(w)

		// sync.Pool may drop entries at any time; only check the invariants.
		again := GetWords(9)
		if len(again) != 9 || cap(again) != 16 {
			t.Errorf("got len %d cap %d, want 9/16", len(again), cap(again))
		}
	})

	t.Run("foreign slices are not pooled", func(t *testing.T) {
		PutWords(make([]uint32, 3)) // cap 3 is not a size class
		PutWords(nil)
	})
}

func TestConfigure(t *testing.T) {
	defer Configure(PoolConfig{Enabled: true, MaxWords: DefaultMaxWords})

	Configure(PoolConfig{Enabled: false})
	if IsEnabled() {
		t.Fatal("pooling should be disabled")
	}
	w := GetWords(5)
	if cap(w) != 5 {
		t.Errorf("disabled pool should allocate exactly, got cap %d", cap(w))
	}
	PutWords(w)

	Configure(PoolConfig{Enabled: true, MaxWords: 8})
	big := GetWords(9)
	if cap(big) != 9 {
		t.Errorf("slices above MaxWords should not be rounded, got cap %d", cap(big))
	}
}
