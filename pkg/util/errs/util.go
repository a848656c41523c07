package errs

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/go-logr/logr"
)

var (
	ErrMissingConfig = errors.New("config is missing")
)

// SilentError is an error wrapper type that silences an
// error and only logs them in the debug log.
//
// It is usually used to prevent spamming the default log when
// clients send handshakes that cannot be read or decrypted.
type SilentError struct{ error }

func (e *SilentError) Error() string {
	return e.error.Error()
}

func NewSilentErr(format string, a ...any) error {
	return &SilentError{fmt.Errorf(format, a...)}
}

func WrapSilent(wrappedErr error) error {
	if wrappedErr == nil {
		return nil
	}
	return &SilentError{wrappedErr}
}

func (e *SilentError) Unwrap() error { return e.error }

// IsSilent reports whether err or any error it wraps is a SilentError.
func IsSilent(err error) bool {
	var s *SilentError
	return errors.As(err, &s)
}

// V returns the logger to use for err. Silent and connection
// closed errors are only logged at the debug level.
func V(log logr.Logger, err error) logr.Logger {
	if IsSilent(err) || IsConnClosedErr(err) {
		return log.V(1)
	}
	return log
}

// IsConnClosedErr reports whether err signals a closed or reset connection.
// see https://github.com/golang/go/issues/4373 for details
func IsConnClosedErr(err error) bool {
	return err != nil && (errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE))
}
