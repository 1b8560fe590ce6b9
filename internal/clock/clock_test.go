package clock

import (
	"testing"
)

func TestVectorClock_Increment(t *testing.T) {
	vc := New()
	vc.Increment("10.0.0.1:4000")
	if vc.Get("10.0.0.1:4000") != 1 {
		t.Errorf("Expected counter 1, got %d", vc.Get("10.0.0.1:4000"))
	}

	vc.Increment("10.0.0.1:4000")
	if vc.Get("10.0.0.1:4000") != 2 {
		t.Errorf("Expected counter 2, got %d", vc.Get("10.0.0.1:4000"))
	}

	vc.Increment("10.0.0.2:4000")
	if vc.Get("10.0.0.2:4000") != 1 {
		t.Errorf("Expected counter 1 for second peer, got %d", vc.Get("10.0.0.2:4000"))
	}
}

func TestVectorClock_Next(t *testing.T) {
	vc := New()
	vc.Set("a", 2)

	next := vc.Next("a")
	if next.Get("a") != 3 {
		t.Errorf("Expected next counter 3, got %d", next.Get("a"))
	}
	if vc.Get("a") != 2 {
		t.Errorf("Next must not mutate the receiver, got %d", vc.Get("a"))
	}

	// Absent entries start at zero, so Next yields 1.
	fresh := New().Next("b")
	if fresh.Get("b") != 1 {
		t.Errorf("Expected counter 1 for fresh peer, got %d", fresh.Get("b"))
	}
}

func TestVectorClock_Merge(t *testing.T) {
	vc1 := New()
	vc1.Set("a", 3)
	vc1.Set("b", 1)

	vc2 := New()
	vc2.Set("a", 2)
	vc2.Set("b", 5)
	vc2.Set("c", 1)

	vc1.Merge(vc2)

	if vc1.Get("a") != 3 {
		t.Errorf("Expected 3 (max), got %d", vc1.Get("a"))
	}
	if vc1.Get("b") != 5 {
		t.Errorf("Expected 5 (max), got %d", vc1.Get("b"))
	}
	if vc1.Get("c") != 1 {
		t.Errorf("Expected 1, got %d", vc1.Get("c"))
	}
}

func TestVectorClock_Compare(t *testing.T) {
	tests := []struct {
		name     string
		vc1      VectorClock
		vc2      VectorClock
		expected Relation
	}{
		{
			name:     "equal clocks",
			vc1:      VectorClock{"a": 1, "b": 2},
			vc2:      VectorClock{"a": 1, "b": 2},
			expected: Equal,
		},
		{
			name:     "both empty",
			vc1:      New(),
			vc2:      New(),
			expected: Equal,
		},
		{
			name:     "explicit zero equals absent entry",
			vc1:      VectorClock{"a": 1, "b": 0},
			vc2:      VectorClock{"a": 1},
			expected: Equal,
		},
		{
			name:     "vc1 before vc2",
			vc1:      VectorClock{"a": 1, "b": 1},
			vc2:      VectorClock{"a": 2, "b": 2},
			expected: Before,
		},
		{
			name:     "vc1 after vc2",
			vc1:      VectorClock{"a": 2, "b": 2},
			vc2:      VectorClock{"a": 1, "b": 1},
			expected: After,
		},
		{
			name:     "empty before non-empty",
			vc1:      New(),
			vc2:      VectorClock{"a": 1},
			expected: Before,
		},
		{
			name:     "concurrent over shared peers",
			vc1:      VectorClock{"a": 2, "b": 1},
			vc2:      VectorClock{"a": 1, "b": 2},
			expected: Concurrent,
		},
		{
			name:     "concurrent over disjoint peers",
			vc1:      VectorClock{"a": 1},
			vc2:      VectorClock{"b": 1},
			expected: Concurrent,
		},
		{
			name:     "before as subset",
			vc1:      VectorClock{"a": 1},
			vc2:      VectorClock{"a": 1, "b": 1},
			expected: Before,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.vc1.Compare(tt.vc2)
			if got != tt.expected {
				t.Errorf("Compare() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestVectorClock_Copy(t *testing.T) {
	vc := New()
	vc.Set("a", 1)

	cp := vc.Copy()
	cp.Increment("a")
	cp.Increment("b")

	if vc.Get("a") != 1 {
		t.Errorf("Copy must be independent, original changed to %d", vc.Get("a"))
	}
	if vc.Get("b") != 0 {
		t.Errorf("Copy must be independent, original gained entry %d", vc.Get("b"))
	}
}

func TestVectorClock_String(t *testing.T) {
	if got := New().String(); got != "{}" {
		t.Errorf("Expected {}, got %s", got)
	}

	vc := VectorClock{"b": 2, "a": 1}
	if got := vc.String(); got != "{a:1, b:2}" {
		t.Errorf("Expected sorted rendering, got %s", got)
	}
}
