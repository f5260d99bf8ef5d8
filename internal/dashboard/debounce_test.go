package dashboard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliveryRecorder struct {
	mu        sync.Mutex
	delivered []FilterSnapshot
}

func (r *deliveryRecorder) record(snap FilterSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, snap)
}

func (r *deliveryRecorder) snapshots() []FilterSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FilterSnapshot, len(r.delivered))
	copy(out, r.delivered)
	return out
}

func TestDebouncerDeliversOnlyLastEdit(t *testing.T) {
	rec := &deliveryRecorder{}
	d := NewDebouncer(30*time.Millisecond, rec.record)
	defer d.Close()

	d.Trigger(FilterSnapshot{VergerID: id(1)})
	time.Sleep(5 * time.Millisecond)
	d.Trigger(FilterSnapshot{VergerID: id(2)})
	time.Sleep(5 * time.Millisecond)
	d.Trigger(FilterSnapshot{VergerID: id(3)})

	time.Sleep(100 * time.Millisecond)

	delivered := rec.snapshots()
	require.Len(t, delivered, 1, "rapid edits inside one window collapse to one delivery")
	require.NotNil(t, delivered[0].VergerID)
	assert.Equal(t, int64(3), *delivered[0].VergerID)
}

func TestDebouncerSeparateWindowsDeliverSeparately(t *testing.T) {
	rec := &deliveryRecorder{}
	d := NewDebouncer(20*time.Millisecond, rec.record)
	defer d.Close()

	d.Trigger(FilterSnapshot{VergerID: id(1)})
	time.Sleep(60 * time.Millisecond)
	d.Trigger(FilterSnapshot{VergerID: id(2)})
	time.Sleep(60 * time.Millisecond)

	assert.Len(t, rec.snapshots(), 2)
}

func TestDebouncerDropsDeliverySupersededDuringExpiry(t *testing.T) {
	rec := &deliveryRecorder{}
	d := NewDebouncer(5*time.Millisecond, rec.record)
	defer d.Close()

	d.Trigger(FilterSnapshot{VergerID: id(1)})
	// A newer trigger can win the race against a timer that already
	// fired; the callback must then treat its snapshot as superseded.
	d.mu.Lock()
	d.seq++
	d.mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshots(), "a superseded snapshot is never delivered")
}

func TestDebouncerCloseCancelsPendingDelivery(t *testing.T) {
	rec := &deliveryRecorder{}
	d := NewDebouncer(30*time.Millisecond, rec.record)

	d.Trigger(FilterSnapshot{VergerID: id(1)})
	d.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.snapshots())

	// Triggers after Close are rejected too.
	d.Trigger(FilterSnapshot{VergerID: id(2)})
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.snapshots())
}
