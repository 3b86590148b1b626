package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds how long ImportFiles waits for another import.
const DefaultLockTimeout = 10 * time.Second

// lockRetry is the polling interval while waiting for the import lock.
const lockRetry = 200 * time.Millisecond

// acquireImportLock takes an exclusive file lock next to the database so
// concurrent imports into the same catalog are serialised across processes.
func acquireImportLock(ctx context.Context, dbPath string, timeout time.Duration) (func(), error) {
	lockPath := dbPath + ".lock"
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("catalog: cannot acquire import lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("catalog: another import is in progress (lock: %s)", lockPath)
		}
		select {
		case <-ctx.Done():
			return func() {}, fmt.Errorf("catalog: waiting for import lock: %w", ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}

// ImportFiles loads the JSON exports and writes them into the SQLite catalog
// at dbPath under an exclusive file lock. It returns the imported catalog.
func ImportFiles(ctx context.Context, dbPath, lawyersPath, resourcesPath string, timeout time.Duration) (*Catalog, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	c, err := LoadJSON(lawyersPath, resourcesPath, nil)
	if err != nil {
		return nil, err
	}

	unlock, err := acquireImportLock(ctx, dbPath, timeout)
	defer unlock()
	if err != nil {
		return nil, err
	}

	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := db.Import(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
