package hotkey

import "encoding/binary"

// Key codes from linux/input-event-codes.h.
const (
	evKey = 1

	keyRelease = 0
	keyPress   = 1

	keyLAlt   = 56
	keyRAlt   = 100
	keyLShift = 42
	keyRShift = 54
	keyR      = 19
)

// inputEventSize is sizeof(struct input_event) on 64-bit kernels.
const inputEventSize = 24

type keyEvent struct {
	code  uint16
	value int32
}

// decodeKeyEvents extracts EV_KEY events from a raw evdev read. A trailing
// partial event is ignored.
func decodeKeyEvents(buf []byte) []keyEvent {
	var out []keyEvent
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
			continue
		}
		out = append(out, keyEvent{
			code:  binary.LittleEndian.Uint16(buf[i+18:]),
			value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return out
}

// comboState tracks modifiers for one keyboard.
type comboState struct {
	alt, shift, held bool
}

// feed reports whether ev completes a fresh press of Alt+Shift+R.
// Repeat events (value 2) leave the state unchanged.
func (s *comboState) feed(ev keyEvent) bool {
	pressed := ev.value == keyPress
	released := ev.value == keyRelease

	switch ev.code {
	case keyLAlt, keyRAlt:
		s.alt = pressed || (!released && s.alt)
	case keyLShift, keyRShift:
		s.shift = pressed || (!released && s.shift)
	case keyR:
		if pressed && !s.held && s.alt && s.shift {
			s.held = true
			return true
		}
		if released {
			s.held = false
		}
	}
	return false
}
