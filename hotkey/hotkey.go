// Package hotkey reports presses of the global record toggle combo.
package hotkey

// Combo is the human-readable toggle shortcut.
const Combo = "Alt+Shift+R"

type Hotkey interface {
	Register() error
	Unregister()
	// Keydown delivers one value per press of the combo. Auto-repeat
	// while the key is held does not produce extra values.
	Keydown() <-chan struct{}
}
