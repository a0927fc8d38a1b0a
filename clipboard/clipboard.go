// Package clipboard copies finished transcripts to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	cb "github.com/atotto/clipboard"
)

// ErrUnsupported means no clipboard utility (pbcopy, xclip, xsel,
// wl-copy) was found.
var ErrUnsupported = errors.New("no clipboard utility available")

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}

// Verify round-trips a probe string and restores the previous contents.
func Verify(probe string) error {
	prev, err := Read()
	if err != nil {
		return err
	}
	defer cb.WriteAll(prev)

	if err := Copy(probe); err != nil {
		return err
	}
	got, err := Read()
	if err != nil {
		return err
	}
	if got != probe {
		return fmt.Errorf("clipboard read back %q", got)
	}
	return nil
}
