package runlog

import (
	"path/filepath"
	"testing"

	"github.com/kestrelvm/kestrel/internal/types"
	"github.com/kestrelvm/kestrel/pkg/guest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(DefaultConfig(filepath.Join(t.TempDir(), "runlog.db")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testReport(id types.ImageID) *Report {
	r := &Report{
		ImageID:        id,
		PC:             0x1004,
		TicksConsumed:  16,
		TicksRemaining: 84,
		CodeModified:   true,
		Events: []guest.Event{
			{Kind: guest.EventSystemCall, Code: 7},
		},
	}
	r.Regs[0] = 6
	r.Regs[1] = 3
	return r
}

// TestPutGetRoundTrip tests storing and retrieving a report.
func TestPutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	id := types.DeriveImageID(0x1000, []uint32{0xD2800540})

	seq, err := store.Put(testReport(id))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("Put() seq = %d, want 0", seq)
	}

	got, err := store.Get(id, 0)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Regs[0] != 6 || got.Regs[1] != 3 {
		t.Errorf("Regs = [%d %d ...], want [6 3 ...]", got.Regs[0], got.Regs[1])
	}
	if got.TicksConsumed != 16 || got.TicksRemaining != 84 {
		t.Errorf("ticks = %d/%d, want 16/84", got.TicksConsumed, got.TicksRemaining)
	}
	if !got.CodeModified {
		t.Error("CodeModified = false, want true")
	}
	if len(got.Events) != 1 || got.Events[0].Code != 7 {
		t.Errorf("Events = %v, want one system-call code=7", got.Events)
	}
	if got.When.IsZero() {
		t.Error("When was not assigned")
	}
}

// TestSequenceAssignment tests per-image sequence numbering.
func TestSequenceAssignment(t *testing.T) {
	store := openTestStore(t)
	a := types.DeriveImageID(0, []uint32{1})
	b := types.DeriveImageID(0, []uint32{2})

	for want := uint64(0); want < 3; want++ {
		seq, err := store.Put(testReport(a))
		if err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
		if seq != want {
			t.Errorf("Put() seq = %d, want %d", seq, want)
		}
	}

	seq, err := store.Put(testReport(b))
	if err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("Put(other image) seq = %d, want 0", seq)
	}

	count, err := store.Count(a)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

// TestList tests ordered retrieval of one image's runs.
func TestList(t *testing.T) {
	store := openTestStore(t)
	a := types.DeriveImageID(0, []uint32{1})
	b := types.DeriveImageID(0, []uint32{2})

	for i := 0; i < 3; i++ {
		r := testReport(a)
		r.TicksConsumed = uint64(i)
		if _, err := store.Put(r); err != nil {
			t.Fatalf("Put() failed: %v", err)
		}
	}
	if _, err := store.Put(testReport(b)); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	reports, err := store.List(a)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(reports))
	}
	for i, r := range reports {
		if r.Seq != uint64(i) {
			t.Errorf("reports[%d].Seq = %d, want %d", i, r.Seq, i)
		}
		if r.TicksConsumed != uint64(i) {
			t.Errorf("reports[%d].TicksConsumed = %d, want %d", i, r.TicksConsumed, i)
		}
	}
}

// TestGetMissing tests the not-found path.
func TestGetMissing(t *testing.T) {
	store := openTestStore(t)
	id := types.DeriveImageID(0, []uint32{0xFF})

	if _, err := store.Get(id, 0); err != ErrReportNotFound {
		t.Errorf("Get(missing) = %v, want ErrReportNotFound", err)
	}
}

// TestClosed tests operations on a closed store.
func TestClosed(t *testing.T) {
	store := openTestStore(t)
	store.Close()

	id := types.DeriveImageID(0, []uint32{1})
	if _, err := store.Put(testReport(id)); err != ErrClosed {
		t.Errorf("Put(closed) = %v, want ErrClosed", err)
	}
	if _, err := store.Get(id, 0); err != ErrClosed {
		t.Errorf("Get(closed) = %v, want ErrClosed", err)
	}
}
