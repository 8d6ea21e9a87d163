package image

import (
	"bytes"
	"testing"

	"github.com/binlift/bin2ir/internal/addr"
)

func TestFlatRawBytes(t *testing.T) {
	f := NewFlat(addr.Address(0x1000), []byte{0xde, 0xad, 0xbe, 0xef})

	data, avail := f.RawBytes(addr.Address(0x1001))
	if avail != 3 || !bytes.Equal(data, []byte{0xad, 0xbe, 0xef}) {
		t.Fatalf("want 3 bytes [ad be ef], got %v avail=%d", data, avail)
	}

	if _, avail := f.RawBytes(addr.Address(0x0fff)); avail != 0 {
		t.Fatalf("address before base must report 0 available")
	}
	if _, avail := f.RawBytes(addr.Address(0x1010)); avail != 0 {
		t.Fatalf("address past the end must report 0 available")
	}
}
