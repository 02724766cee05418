package media

import (
	"os"
	"sync"
)

// Lease is scoped ownership of a temporary file backing a Reference. The
// holding session must release it when the source is replaced or the
// session is torn down. Release is idempotent: the file is removed exactly
// once no matter how many times Release is called.
type Lease struct {
	path    string
	once    sync.Once
	release func(string) error
}

// NewLease creates a lease over the given file path.
func NewLease(path string) *Lease {
	return &Lease{path: path, release: os.Remove}
}

// newLeaseWithRemover is used by tests to observe release calls.
func newLeaseWithRemover(path string, remove func(string) error) *Lease {
	return &Lease{path: path, release: remove}
}

// Path returns the leased file path.
func (l *Lease) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release removes the backing file. Safe to call multiple times; only the
// first call performs the removal.
func (l *Lease) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		removeErr := l.release(l.path)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			err = removeErr
		}
	})
	return err
}
