// Package reassembly reassembles multi-fragment SPDU signatures keyed by
// (vehicle ID, sequence number), and evicts entries that never complete
// (spec.md §4.4, DESIGN.md open question 2).
package reassembly

import (
	"sync"
	"time"

	"github.com/twardokus/v2verifier/internal/constants"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// Entry tracks the in-progress reassembly of one SPDU's signature.
type Entry struct {
	// Data, Scheme, SignatureBufferLength, and CertSignatureBufferLength
	// are overwritten by every arriving fragment (last-writer-wins,
	// matching the original — every fragment of one SPDU carries an
	// identical copy of these fields anyway).
	Data                      wire.SignedData
	Scheme                    constants.SchemeTag
	SignatureBufferLength     uint32
	CertSignatureBufferLength uint32

	buffer    []byte
	received  []bool
	firstSeen time.Time
}

// Signature returns the assembled signature bytes collected so far.
func (e *Entry) Signature() []byte {
	return e.buffer
}

// Table is a reassembly table: one Entry per (vehicle, sequence) key,
// created lazily on first fragment and removed on completion.
type Table struct {
	mu      sync.Mutex
	entries map[uint64]*Entry
}

// NewTable creates an empty reassembly table.
func NewTable() *Table {
	return &Table{entries: make(map[uint64]*Entry)}
}

// Add admits fragment f, received at receivedAt, into the table. It
// returns the entry and whether every fragment of that SPDU has now
// arrived; a complete entry is removed from the table before being
// returned, so a caller must not call Add again for the same key after
// completion.
func (t *Table) Add(f *wire.Fragment, receivedAt time.Time) (*Entry, bool) {
	key := wire.MessageKey(f.VehicleID, f.SequenceNumber)

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok {
		entry = &Entry{
			buffer:    make([]byte, f.SignatureBufferLength),
			received:  make([]bool, f.FragmentCount),
			firstSeen: receivedAt,
		}
		t.entries[key] = entry
	}

	if int(f.FragmentIndex) < len(entry.received) && !entry.received[f.FragmentIndex] {
		offset := int(f.SignatureOffset)
		length := int(f.FragmentLength)
		if offset+length <= len(entry.buffer) {
			copy(entry.buffer[offset:offset+length], f.SignatureFragment[:length])
			entry.received[f.FragmentIndex] = true
		}
	}

	entry.Data = f.Data
	entry.Scheme = f.Scheme
	entry.SignatureBufferLength = f.SignatureBufferLength
	entry.CertSignatureBufferLength = f.CertSignatureBufferLength

	complete := allReceived(entry.received)
	if complete {
		delete(t.entries, key)
	}

	return entry, complete
}

func allReceived(received []bool) bool {
	for _, r := range received {
		if !r {
			return false
		}
	}
	return true
}

// EvictStale removes entries whose first fragment arrived more than
// maxAge before now, returning how many were evicted. The original
// simulator never prunes incomplete entries; this closes that leak for
// long-running or lossy scenarios (DESIGN.md open question 2).
func (t *Table) EvictStale(now time.Time, maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for key, entry := range t.entries {
		if now.Sub(entry.firstSeen) > maxAge {
			delete(t.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of in-progress entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
