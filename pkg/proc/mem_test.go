package proc_test

import (
	"bytes"
	"testing"

	"github.com/go-asmwin/asmwin/pkg/proc"
)

func TestRegionMemoryRead(t *testing.T) {
	mem := &proc.RegionMemory{}
	mem.AddRegion(0x1000, []byte{1, 2, 3, 4})

	buf := make([]byte, 4)
	n, err := mem.ReadMemory(buf, 0x1000)
	if err != nil || n != 4 {
		t.Fatalf("ReadMemory = %d, %v; want 4, nil", n, err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("read %v, want [1 2 3 4]", buf)
	}
}

func TestRegionMemoryPartialRead(t *testing.T) {
	mem := &proc.RegionMemory{}
	mem.AddRegion(0x1000, []byte{1, 2, 3, 4})

	// A read crossing the end of the region is truncated, not failed.
	buf := make([]byte, 16)
	n, err := mem.ReadMemory(buf, 0x1002)
	if err != nil {
		t.Fatalf("partial read failed: %v", err)
	}
	if n != 2 {
		t.Errorf("partial read n = %d, want 2", n)
	}
	if !bytes.Equal(buf[:n], []byte{3, 4}) {
		t.Errorf("partial read %v, want [3 4]", buf[:n])
	}
}

func TestRegionMemoryUnmapped(t *testing.T) {
	mem := &proc.RegionMemory{}
	mem.AddRegion(0x1000, []byte{1, 2, 3, 4})

	buf := make([]byte, 4)
	if n, err := mem.ReadMemory(buf, 0x2000); err == nil || n != 0 {
		t.Errorf("read of unmapped address = %d, %v; want 0, error", n, err)
	}

	if mem.Peek(0x2000) {
		t.Error("Peek(0x2000) = true, want false")
	}
	if !mem.Peek(0x1003) {
		t.Error("Peek(0x1003) = false, want true")
	}
	if mem.Peek(0x1004) {
		t.Error("Peek(0x1004) = true, want false (one past the end)")
	}
}
