package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

var ErrSelectionCancelled = errors.New("device selection cancelled")

// SelectDevice shows an interactive picker on the terminal. Devices whose
// name contains marker are tagged as loopback candidates and preselected.
func SelectDevice(ctx Context, title, marker string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	for i, d := range devices {
		if d.Matches(marker) {
			cursor = i
			break
		}
	}

	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Printf("%s (↑/↓, Enter to confirm, q to cancel):\r\n\r\n", title)
		for i, d := range devices {
			tag := ""
			if d.Matches(marker) {
				tag = " \x1b[32m[loopback]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case n == 1 && (buf[0] == 3 || buf[0] == 'q' || buf[0] == 0x1b):
			fmt.Print("\r\n")
			return nil, ErrSelectionCancelled
		case (n == 1 && buf[0] == 'j') || (n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B'):
			cursor = min(cursor+1, len(devices)-1)
		case (n == 1 && buf[0] == 'k') || (n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A'):
			cursor = max(cursor-1, 0)
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		render()
	}
}
