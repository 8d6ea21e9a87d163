// Package image defines the binary-image contract the decoder reads
// instruction bytes through, plus an in-memory flat image backing tests and
// the CLI's decode command, which maps the whole input file as one flat
// image. The real loader (ELF/PE/Mach-O section mapping) is
// treated as an external collaborator and is out of scope here.
package image

import "github.com/binlift/bin2ir/internal/addr"

// Provider answers "what bytes, if any, are mapped starting at a". The
// decoder uses this both to fetch instruction bytes and to learn how far a
// contiguous mapped run extends (available) so it can bound lookahead.
type Provider interface {
	RawBytes(a addr.Address) (data []byte, available int)
}

// Flat is a Provider backed by one contiguous byte slice starting at Base.
type Flat struct {
	Base addr.Address
	Data []byte
}

// NewFlat wraps data as a single contiguous image starting at base.
func NewFlat(base addr.Address, data []byte) *Flat {
	return &Flat{Base: base, Data: data}
}

func (f *Flat) RawBytes(a addr.Address) (data []byte, available int) {
	if a.Less(f.Base) {
		return nil, 0
	}
	off := uint64(a) - uint64(f.Base)
	if off >= uint64(len(f.Data)) {
		return nil, 0
	}
	rest := f.Data[off:]
	return rest, len(rest)
}
