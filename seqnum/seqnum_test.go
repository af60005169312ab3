package seqnum

import "testing"

func TestLessThanWrap(t *testing.T) {
	a := Value(0xfffffffe)
	b := Value(2)
	if !a.LessThan(b) {
		t.Fatalf("expected %d < %d across wraparound", a, b)
	}
	if b.LessThan(a) {
		t.Fatalf("did not expect %d < %d", b, a)
	}
}

func TestInWindow(t *testing.T) {
	start := Value(1000)
	const wnd Size = 1000
	cases := []struct {
		v    Value
		want bool
	}{
		{999, false},
		{1000, true},
		{1999, true},
		{2000, false},
	}
	for _, c := range cases {
		if got := c.v.InWindow(start, wnd); got != c.want {
			t.Errorf("InWindow(%d, start=%d, wnd=%d) = %v, want %v", c.v, start, wnd, got, c.want)
		}
	}
}

func TestInWindowZero(t *testing.T) {
	if (Value(1000)).InWindow(1000, 0) {
		t.Fatal("zero-size window must contain nothing")
	}
}

func TestSizeofWrap(t *testing.T) {
	got := Sizeof(Value(0xfffffffe), Value(2))
	if got != 4 {
		t.Fatalf("Sizeof wraparound = %d, want 4", got)
	}
}

func TestUpdateForward(t *testing.T) {
	v := Value(1000)
	v.UpdateForward(3)
	if v != 1003 {
		t.Fatalf("UpdateForward: got %d want 1003", v)
	}
}
