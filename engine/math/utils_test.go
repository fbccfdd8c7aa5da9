package math

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		f, low, high, want uint32
	}{
		{800, 1, 4096, 800},
		{0, 1, 4096, 1},
		{5000, 1, 4096, 4096},
		{16, 16, 16, 16},
	}
	for _, c := range cases {
		if have := Clamp(c.f, c.low, c.high); have != c.want {
			t.Fatalf("Clamp(%d, %d, %d)\nhave %d\nwant %d", c.f, c.low, c.high, have, c.want)
		}
	}
	if have := Clamp(1.5, 0.0, 1.0); have != 1.0 {
		t.Fatalf("Clamp(1.5, 0, 1)\nhave %v\nwant 1", have)
	}
}

func TestClampMin(t *testing.T) {
	if have := ClampMin[uint32](9, 2, 0); have != 9 {
		t.Fatalf("ClampMin(9, 2, 0)\nhave %d\nwant 9", have)
	}
	if have := ClampMin[uint32](1, 2, 0); have != 2 {
		t.Fatalf("ClampMin(1, 2, 0)\nhave %d\nwant 2", have)
	}
	if have := ClampMin[uint32](9, 2, 3); have != 3 {
		t.Fatalf("ClampMin(9, 2, 3)\nhave %d\nwant 3", have)
	}
}
