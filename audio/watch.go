package audio

import (
	"context"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"microwhisper/log"
)

// Watcher reports input topology changes. Kernel device nodes are
// watched with fsnotify where the platform has them; sound-server virtual
// devices never appear there, so the device list is also polled and
// compared by name.
type Watcher struct {
	ctx      Context
	interval time.Duration
	dir      string
	changes  chan struct{}
}

func NewWatcher(ctx Context, interval time.Duration) *Watcher {
	dir := ""
	if runtime.GOOS == "linux" {
		dir = "/dev/snd"
	}
	return &Watcher{
		ctx:      ctx,
		interval: interval,
		dir:      dir,
		changes:  make(chan struct{}, 1),
	}
}

// Changes delivers one value per burst of topology changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	var events <-chan fsnotify.Event
	var errs <-chan error
	if fw := w.openNotify(); fw != nil {
		defer fw.Close()
		events, errs = fw.Events, fw.Errors
	}

	last := w.names()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) {
				w.notify()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warnf("device watch: %v", err)
		case <-ticker.C:
			names := w.names()
			if names == nil || slices.Equal(last, names) {
				continue
			}
			last = names
			w.notify()
		}
	}
}

func (w *Watcher) openNotify() *fsnotify.Watcher {
	if w.dir == "" {
		return nil
	}
	if _, err := os.Stat(w.dir); err != nil {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("device watch: %v", err)
		return nil
	}
	if err := fw.Add(w.dir); err != nil {
		log.Warnf("device watch %s: %v", w.dir, err)
		fw.Close()
		return nil
	}
	return fw
}

func (w *Watcher) names() []string {
	devices, err := w.ctx.Devices()
	if err != nil {
		return nil
	}
	names := make([]string, len(devices))
	for i := range devices {
		names[i] = devices[i].Name
	}
	return names
}
