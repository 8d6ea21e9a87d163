package worklist

import (
	"testing"

	"github.com/binlift/bin2ir/internal/addr"
)

func TestQueueEntryPointsFirst(t *testing.T) {
	q := NewQueue()
	q.Push(Target{Address: 0x2000, Kind: CFCallTarget})
	q.Push(Target{Address: 0x1000, Kind: EntryPoint})

	got := q.Pop()
	if got.Kind != EntryPoint || got.Address != 0x1000 {
		t.Fatalf("expected entry point first, got %+v", got)
	}
}

func TestQueueAscendingAddress(t *testing.T) {
	q := NewQueue()
	q.Push(Target{Address: 0x3000, Kind: CFCallTarget})
	q.Push(Target{Address: 0x1000, Kind: CFCallTarget})
	q.Push(Target{Address: 0x2000, Kind: CFCallTarget})

	var got []addr.Address
	for !q.Empty() {
		got = append(got, q.Pop().Address)
	}
	want := []addr.Address{0x1000, 0x2000, 0x3000}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestQueueKindTieBreak(t *testing.T) {
	q := NewQueue()
	q.Push(Target{Address: 0x1000, Kind: CFReturnTarget})
	q.Push(Target{Address: 0x1000, Kind: CFCallAfter})
	q.Push(Target{Address: 0x1000, Kind: CFBrFalse})
	q.Push(Target{Address: 0x1000, Kind: CFBrTrue})
	q.Push(Target{Address: 0x1000, Kind: CFCallTarget})

	want := []Kind{CFCallTarget, CFBrTrue, CFBrFalse, CFCallAfter, CFReturnTarget}
	for i, w := range want {
		got := q.Pop()
		if got.Kind != w {
			t.Fatalf("at %d: got kind %v want %v", i, got.Kind, w)
		}
	}
}

func TestQueueDuplicatePushIdempotent(t *testing.T) {
	q := NewQueue()
	from := "inst-1"
	q.Push(Target{Address: 0x1000, Kind: CFCallTarget, FromInst: from})
	q.Push(Target{Address: 0x1000, Kind: CFCallTarget, FromInst: from})

	q.Pop()
	if !q.Empty() {
		t.Fatalf("expected duplicate push to be a no-op, queue still has items")
	}
}
