package hotkey

import (
	"encoding/binary"
	"testing"
)

func rawEvent(typ, code uint16, value int32) []byte {
	b := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(b[16:], typ)
	binary.LittleEndian.PutUint16(b[18:], code)
	binary.LittleEndian.PutUint32(b[20:], uint32(value))
	return b
}

func TestDecodeKeyEvents(t *testing.T) {
	var buf []byte
	buf = append(buf, rawEvent(evKey, keyLAlt, keyPress)...)
	buf = append(buf, rawEvent(0, 0, 0)...) // EV_SYN
	buf = append(buf, rawEvent(evKey, keyR, 2)...)
	buf = append(buf, 1, 2, 3)

	got := decodeKeyEvents(buf)
	want := []keyEvent{{keyLAlt, keyPress}, {keyR, 2}}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComboState(t *testing.T) {
	press := func(code uint16) keyEvent { return keyEvent{code, keyPress} }
	release := func(code uint16) keyEvent { return keyEvent{code, keyRelease} }
	repeat := func(code uint16) keyEvent { return keyEvent{code, 2} }

	tests := []struct {
		name   string
		events []keyEvent
		fires  int
	}{
		{"combo", []keyEvent{press(keyLAlt), press(keyLShift), press(keyR)}, 1},
		{"right modifiers", []keyEvent{press(keyRShift), press(keyRAlt), press(keyR)}, 1},
		{"r alone", []keyEvent{press(keyR), release(keyR)}, 0},
		{"missing shift", []keyEvent{press(keyLAlt), press(keyR)}, 0},
		{"modifier released first", []keyEvent{press(keyLAlt), press(keyLShift), release(keyLAlt), press(keyR)}, 0},
		{"auto repeat", []keyEvent{press(keyLAlt), press(keyLShift), press(keyR), repeat(keyR), repeat(keyR)}, 1},
		{"two taps", []keyEvent{
			press(keyLAlt), press(keyLShift),
			press(keyR), release(keyR),
			press(keyR), release(keyR),
		}, 2},
		{"modifier repeat keeps state", []keyEvent{press(keyLAlt), repeat(keyLAlt), press(keyLShift), press(keyR)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s comboState
			fires := 0
			for _, ev := range tt.events {
				if s.feed(ev) {
					fires++
				}
			}
			if fires != tt.fires {
				t.Errorf("fired %d times, want %d", fires, tt.fires)
			}
		})
	}
}

func TestFakeHotkey(t *testing.T) {
	hk := NewFake()
	if err := hk.Register(); err != nil {
		t.Fatal(err)
	}
	defer hk.Unregister()
	hk.SimKeydown()
	select {
	case <-hk.Keydown():
	default:
		t.Fatal("no keydown delivered")
	}
}
