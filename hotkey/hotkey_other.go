//go:build darwin || windows

package hotkey

import (
	"golang.design/x/hotkey"
)

// systemHotkey registers the combo with the OS. On macOS the caller must
// run on the main thread (see mainthread.Init).
type systemHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	stop    chan struct{}
}

func New() Hotkey {
	return &systemHotkey{
		hk:      hotkey.New(comboModifiers, hotkey.KeyR),
		keydown: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *systemHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-h.stop:
				return
			case <-h.hk.Keydown():
			}
			select {
			case h.keydown <- struct{}{}:
			default:
			}
		}
	}()
	return nil
}

func (h *systemHotkey) Unregister() {
	select {
	case <-h.stop:
		return
	default:
	}
	close(h.stop)
	h.hk.Unregister()
}

func (h *systemHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func Diagnose() (string, error) {
	hk := hotkey.New(comboModifiers, hotkey.KeyR)
	if err := hk.Register(); err != nil {
		return "", err
	}
	hk.Unregister()
	return "hotkey support available (" + Combo + ")", nil
}
