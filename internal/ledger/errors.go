package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when a subscription cannot be
	// established or a live view can no longer be refreshed.
	ErrStoreUnavailable = errors.New("ledger store unavailable")

	// ErrNotFound is returned by repositories for unknown ids.
	ErrNotFound = errors.New("record not found")
)

// WriteRejectedError wraps the cause of a failed create, update or delete.
type WriteRejectedError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *WriteRejectedError) Error() string {
	return fmt.Sprintf("%s %s rejected: %v", e.Op, e.Kind, e.Err)
}

func (e *WriteRejectedError) Unwrap() error { return e.Err }

// IsWriteRejected reports whether err is, or wraps, a WriteRejectedError.
func IsWriteRejected(err error) bool {
	var wr *WriteRejectedError
	return errors.As(err, &wr)
}

func rejected(op string, kind Kind, err error) error {
	return &WriteRejectedError{Op: op, Kind: kind, Err: err}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
