package vcell

import "testing"

func TestCellReadWrite(t *testing.T) {
	c := NewCell[uint32](0)

	if got := c.Read(); got != 0 {
		t.Fatalf("Read() = %d, want 0", got)
	}

	c.Write(0xdeadbeef)

	if got := c.Read(); got != 0xdeadbeef {
		t.Fatalf("Read() = %#x, want 0xdeadbeef", got)
	}
}

func TestCellStruct(t *testing.T) {
	type pair struct {
		a, b uint32
	}

	c := NewCell(pair{a: 1, b: 2})
	c.Write(pair{a: 3, b: 4})

	got := c.Read()
	if got.a != 3 || got.b != 4 {
		t.Fatalf("Read() = %+v, want {3 4}", got)
	}
}
