package logging

import (
	"context"
	"errors"
	"net"
)

// IsTransient reports whether err is worth retrying: an expired deadline, a
// network timeout, or an error that declares itself temporary.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}
