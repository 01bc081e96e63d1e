package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	lockPoll       = 25 * time.Millisecond
	lockStaleAfter = 30 * time.Second
)

// acquireLock creates path exclusively, waiting while another writer holds it. A lock older than
// lockStaleAfter belongs to a crashed writer and is removed. The returned func releases the lock.
func acquireLock(ctx context.Context, path string) (func(), error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			fmt.Fprintf(f, `{"pid":%d,"time":%d}`+"\n", os.Getpid(), time.Now().Unix())
			f.Close()
			return func() { os.Remove(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("failed to create lock %s: %w", path, err)
		}

		if fi, err := os.Stat(path); err == nil && time.Since(fi.ModTime()) >= lockStaleAfter {
			os.Remove(path)
			continue
		}

		timer := time.NewTimer(lockPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-timer.C:
		}
	}
}
