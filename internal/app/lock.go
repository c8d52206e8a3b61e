package app

import (
	"fmt"
	"os"
	"path/filepath"

	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/gofrs/flock"
)

// instanceLock keeps two bots from sharing one account's nonce sequence.
type instanceLock struct {
	lock *flock.Flock
}

func acquireInstanceLock(path string) (*instanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "create lock directory", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "acquire instance lock", err)
	}
	if !ok {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("another bot instance holds %s", path))
	}
	return &instanceLock{lock: lock}, nil
}

func (l *instanceLock) release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}
