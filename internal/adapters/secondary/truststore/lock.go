package truststore

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// lockRetries, lockBackoffBase/Max, and lockStaleTimeout implement the
// exclusive advisory lock protocol of spec §4.5: 5 attempts,
// exponential factor 1.5, 100ms to 1s, stale timeout 5s.
const (
	lockRetries      = 5
	lockBackoffBase  = 100 * time.Millisecond
	lockBackoffMax   = 1 * time.Second
	lockBackoffRate  = 1.5
	lockStaleTimeout = 5 * time.Second
)

// fileLock wraps an exclusive flock(2) advisory lock on a sidecar
// ".lock" file, grounded on the same golang.org/x/sys/unix package the
// teacher corpus (bureau-foundation-bureau/lib/secret) uses to reach
// syscalls the standard library doesn't expose.
type fileLock struct {
	f *os.File
}

// acquireLock opens (creating if needed) path and takes an exclusive
// flock, retrying with exponential backoff per spec §4.5. Once
// lockStaleTimeout has passed since the first attempt, an attempt
// falls back to a blocking flock, which waits for the holder to release
// the lock rather than taking it away. With the current constants the
// lockRetries attempts all start within about 0.8s, before
// lockStaleTimeout, so that fallback is not reached: a lock another
// process holds through every attempt makes acquireLock return an
// error.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("trust store: open lock file: %w", err)
	}

	delay := lockBackoffBase
	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < lockRetries; attempt++ {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{f: f}, nil
		}
		lastErr = err

		if time.Since(start) >= lockStaleTimeout {
			// Force the lock: the previous holder is presumed dead.
			if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err == nil {
				return &fileLock{f: f}, nil
			}
		}

		time.Sleep(delay)
		delay = time.Duration(float64(delay) * lockBackoffRate)
		if delay > lockBackoffMax {
			delay = lockBackoffMax
		}
	}

	f.Close()
	return nil, fmt.Errorf("trust store: lock %s: %w", path, lastErr)
}

// release unlocks and closes the lock file.
func (l *fileLock) release() error {
	defer l.f.Close()
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}
