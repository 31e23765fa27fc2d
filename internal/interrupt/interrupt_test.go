package interrupt

import "testing"

func TestSignalCoalesces(t *testing.T) {
	c := New()

	c.Signal()
	c.Signal()
	c.Signal()

	select {
	case <-c.C():
	default:
		t.Fatal("expected a pending wakeup")
	}

	select {
	case <-c.C():
		t.Fatal("expected signals to coalesce into a single wakeup")
	default:
	}
}

func TestDrain(t *testing.T) {
	c := New()
	c.Signal()
	c.Drain()

	select {
	case <-c.C():
		t.Fatal("expected Drain to empty the channel")
	default:
	}
}
