package hotkey

// FakeHotkey is driven by SimKeydown instead of a keyboard.
type FakeHotkey struct {
	keydown chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{keydown: make(chan struct{}, 1)}
}

func (f *FakeHotkey) Register() error          { return nil }
func (f *FakeHotkey) Unregister()              {}
func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }
