package watch

import (
	"sync"
	"testing"
	"time"
)

type supersedeRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *supersedeRecorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *supersedeRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func expectReady(t *testing.T, d *Debouncer, want string, within time.Duration) {
	t.Helper()
	select {
	case got := <-d.Ready():
		if got != want {
			t.Fatalf("ready = %q, want %q", got, want)
		}
	case <-time.After(within):
		t.Fatalf("no arrival within %v", within)
	}
}

func expectQuiet(t *testing.T, d *Debouncer, wait time.Duration) {
	t.Helper()
	select {
	case got := <-d.Ready():
		t.Fatalf("unexpected arrival %q", got)
	case <-time.After(wait):
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	const delay = 100 * time.Millisecond
	d := NewDebouncer(delay, nil)
	defer d.Stop()

	var last time.Time
	for range 5 {
		d.Notify("/r/a.aoe2record")
		last = time.Now()
		time.Sleep(20 * time.Millisecond)
	}

	expectReady(t, d, "/r/a.aoe2record", 2*time.Second)
	if elapsed := time.Since(last); elapsed < delay {
		t.Errorf("released %v after last event, want >= %v", elapsed, delay)
	}
	expectQuiet(t, d, 3*delay)
}

func TestDebouncer_LastWriterWins(t *testing.T) {
	rec := &supersedeRecorder{}
	d := NewDebouncer(80*time.Millisecond, rec.record)
	defer d.Stop()

	d.Notify("/r/a.aoe2record")
	time.Sleep(20 * time.Millisecond)
	d.Notify("/r/b.aoe2record")

	expectReady(t, d, "/r/b.aoe2record", 2*time.Second)
	expectQuiet(t, d, 200*time.Millisecond)

	if got := rec.get(); len(got) != 1 || got[0] != "/r/a.aoe2record" {
		t.Errorf("superseded = %v, want [/r/a.aoe2record]", got)
	}
}

func TestDebouncer_RepeatedSamePathIsNotSuperseded(t *testing.T) {
	rec := &supersedeRecorder{}
	d := NewDebouncer(50*time.Millisecond, rec.record)
	defer d.Stop()

	d.Notify("/r/a.aoe2record")
	d.Notify("/r/a.aoe2record")

	expectReady(t, d, "/r/a.aoe2record", 2*time.Second)
	if got := rec.get(); len(got) != 0 {
		t.Errorf("superseded = %v, want none", got)
	}
}

func TestDebouncer_ReadySlotOverwrite(t *testing.T) {
	rec := &supersedeRecorder{}
	d := NewDebouncer(30*time.Millisecond, rec.record)
	defer d.Stop()

	// Nobody consumes Ready while two arrivals settle one after another.
	d.Notify("/r/a.aoe2record")
	time.Sleep(150 * time.Millisecond)
	d.Notify("/r/b.aoe2record")
	time.Sleep(150 * time.Millisecond)

	expectReady(t, d, "/r/b.aoe2record", time.Second)
	expectQuiet(t, d, 100*time.Millisecond)

	if got := rec.get(); len(got) != 1 || got[0] != "/r/a.aoe2record" {
		t.Errorf("superseded = %v, want [/r/a.aoe2record]", got)
	}
}

func TestDebouncer_StaleTimerIgnored(t *testing.T) {
	d := NewDebouncer(time.Hour, nil)
	defer d.Stop()

	d.Notify("/r/a.aoe2record")
	d.Notify("/r/b.aoe2record")

	// A callback from the first timer fires late.
	d.fire(1)

	expectQuiet(t, d, 50*time.Millisecond)
	if p, ok := d.Pending(); !ok || p != "/r/b.aoe2record" {
		t.Errorf("Pending = %q, %v", p, ok)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, nil)
	d.Notify("/r/a.aoe2record")
	d.Stop()

	expectQuiet(t, d, 150*time.Millisecond)

	d.Notify("/r/b.aoe2record")
	if _, ok := d.Pending(); ok {
		t.Error("Notify after Stop should be ignored")
	}
}
