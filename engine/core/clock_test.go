package core

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("Elapsed before Start\nhave %v\nwant 0", c.Elapsed())
	}

	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	elapsed := c.Elapsed()
	if elapsed < 5*time.Millisecond {
		t.Fatalf("Elapsed\nhave %v\nwant >= 5ms", elapsed)
	}

	c.Stop()
	time.Sleep(2 * time.Millisecond)
	c.Update()
	if c.Elapsed() != elapsed {
		t.Fatalf("Elapsed after Stop\nhave %v\nwant %v", c.Elapsed(), elapsed)
	}

	c.Start()
	if c.Elapsed() != 0 {
		t.Fatalf("Elapsed after restart\nhave %v\nwant 0", c.Elapsed())
	}
}
