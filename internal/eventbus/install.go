package eventbus

import (
	"errors"
	"sync"
)

var (
	installMu sync.Mutex
	installed *Bus
)

// Install makes b the process-wide bus. It succeeds once; later calls return
// ErrAlreadyInitialized and keep the first bus, whose subscribers would
// otherwise be orphaned.
func Install(b *Bus) error {
	if b == nil {
		return errors.New("eventbus: install nil bus")
	}
	installMu.Lock()
	defer installMu.Unlock()
	if installed != nil {
		return ErrAlreadyInitialized
	}
	installed = b
	return nil
}

// MustInstall is Install that panics on a second initialization.
func MustInstall(b *Bus) *Bus {
	if err := Install(b); err != nil {
		panic(err)
	}
	return b
}

// Default returns the installed bus, or nil before Install.
func Default() *Bus {
	installMu.Lock()
	defer installMu.Unlock()
	return installed
}
