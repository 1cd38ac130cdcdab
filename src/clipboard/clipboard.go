// Package clipboard copies translations to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var ErrUnavailable = errors.New("clipboard unavailable")

var (
	writeMu sync.Mutex
	once    sync.Once
	initErr error
)

// Init prepares the platform clipboard. It is safe to call more than once.
func Init() error {
	once.Do(func() {
		if err := clipboard.Init(); err != nil {
			initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	})
	return initErr
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	if err := Init(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Read returns the current text contents of the clipboard.
func Read() (string, error) {
	if err := Init(); err != nil {
		return "", err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return string(clipboard.Read(clipboard.FmtText)), nil
}
