package audio

import (
	"context"
	"testing"
	"time"
)

func TestWatcherReportsDeviceListChange(t *testing.T) {
	fc := NewFakeContext([]DeviceInfo{{ID: "mic", Name: "Mic"}}, "mic")
	w := NewWatcher(fc, 5*time.Millisecond)
	w.dir = ""

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case <-w.Changes():
		t.Fatal("change reported without topology change")
	case <-time.After(30 * time.Millisecond):
	}

	fc.SetDevices([]DeviceInfo{{ID: "mic", Name: "Mic"}, {ID: "bh", Name: "BlackHole 2ch"}})

	select {
	case <-w.Changes():
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported after device added")
	}
}

func TestWatcherCoalesces(t *testing.T) {
	w := NewWatcher(NewFakeContext(nil, ""), time.Hour)
	w.notify()
	w.notify()
	w.notify()

	<-w.Changes()
	select {
	case <-w.Changes():
		t.Fatal("burst should coalesce into one notification")
	default:
	}
}
