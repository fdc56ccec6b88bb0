package reassembly

import (
	"context"
	"testing"
	"time"

	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/wire"
)

func fragmentFor(vehicleID uint8, seq uint32, index, count uint16, sigLen uint32, offset, length uint32, payload byte) *wire.Fragment {
	f := &wire.Fragment{
		VehicleID:              vehicleID,
		SequenceNumber:         seq,
		Scheme:                 constants.SchemeFalcon,
		FragmentIndex:          index,
		FragmentCount:          count,
		SignatureBufferLength:  sigLen,
		FragmentLength:         length,
		SignatureOffset:        offset,
		Data:                   wire.SignedData{},
	}
	for i := uint32(0); i < length; i++ {
		f.SignatureFragment[i] = payload
	}
	return f
}

func TestTableCompletesOnLastFragmentInOrder(t *testing.T) {
	table := NewTable()
	now := time.Now()

	f0 := fragmentFor(1, 0, 0, 2, 20, 0, 10, 0xAA)
	_, complete := table.Add(f0, now)
	if complete {
		t.Fatal("table should not be complete after 1 of 2 fragments")
	}

	f1 := fragmentFor(1, 0, 1, 2, 20, 10, 10, 0xBB)
	entry, complete := table.Add(f1, now)
	if !complete {
		t.Fatal("table should be complete after 2 of 2 fragments")
	}
	if len(entry.Signature()) != 20 {
		t.Fatalf("Signature() length = %d, want 20", len(entry.Signature()))
	}
	if entry.Signature()[0] != 0xAA || entry.Signature()[10] != 0xBB {
		t.Error("reassembled signature bytes are in the wrong place")
	}
	if table.Len() != 0 {
		t.Error("completed entry should be removed from the table")
	}
}

func TestTableCompletesOutOfOrder(t *testing.T) {
	table := NewTable()
	now := time.Now()

	fragments := []*wire.Fragment{
		fragmentFor(2, 5, 2, 3, 30, 20, 10, 0x03),
		fragmentFor(2, 5, 0, 3, 30, 0, 10, 0x01),
		fragmentFor(2, 5, 1, 3, 30, 10, 10, 0x02),
	}

	var lastComplete bool
	var entry *Entry
	for _, f := range fragments {
		entry, lastComplete = table.Add(f, now)
	}
	if !lastComplete {
		t.Fatal("table should complete once the third fragment arrives, regardless of order")
	}
	sig := entry.Signature()
	if sig[0] != 0x01 || sig[10] != 0x02 || sig[20] != 0x03 {
		t.Error("out-of-order fragments were not placed at their declared offsets")
	}
}

func TestTableDuplicateFragmentIsIdempotent(t *testing.T) {
	table := NewTable()
	now := time.Now()

	f0 := fragmentFor(3, 0, 0, 2, 20, 0, 10, 0xAA)
	table.Add(f0, now)
	table.Add(f0, now) // duplicate delivery
	entry, complete := table.Add(fragmentFor(3, 0, 1, 2, 20, 10, 10, 0xBB), now)
	if !complete {
		t.Fatal("table should complete after both fragment indices are seen")
	}
	if entry.Signature()[0] != 0xAA {
		t.Error("duplicate fragment corrupted the reassembly buffer")
	}
}

func TestTableEvictStale(t *testing.T) {
	table := NewTable()
	base := time.Now()

	table.Add(fragmentFor(4, 0, 0, 2, 20, 0, 10, 0xAA), base)
	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}

	evicted := table.EvictStale(base.Add(time.Minute), 30*time.Second)
	if evicted != 1 {
		t.Errorf("EvictStale() = %d, want 1", evicted)
	}
	if table.Len() != 0 {
		t.Error("stale entry should have been removed")
	}
}

func TestTableEvictStaleKeepsFreshEntries(t *testing.T) {
	table := NewTable()
	base := time.Now()

	table.Add(fragmentFor(5, 0, 0, 2, 20, 0, 10, 0xAA), base)
	evicted := table.EvictStale(base.Add(5*time.Second), 30*time.Second)
	if evicted != 0 {
		t.Errorf("EvictStale() = %d, want 0 for a fresh entry", evicted)
	}
	if table.Len() != 1 {
		t.Error("fresh entry should not have been removed")
	}
}

func TestReaperEvictsOnSchedule(t *testing.T) {
	table := NewTable()
	table.Add(fragmentFor(6, 0, 0, 2, 20, 0, 10, 0xAA), time.Now().Add(-time.Hour))

	evicted := make(chan int, 1)
	reaper := NewReaper(table, 10*time.Millisecond, 30*time.Second, func(count int) {
		select {
		case evicted <- count:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reaper.Start(ctx)
	defer reaper.Stop()

	select {
	case count := <-evicted:
		if count != 1 {
			t.Errorf("onEvict count = %d, want 1", count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not evict the stale entry in time")
	}
}
