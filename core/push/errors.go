package push

import (
	"fmt"
	"net/http"
)

type (
	// KeyFormatError reports malformed VAPID key material. No subscriber can be signed for.
	KeyFormatError struct {
		Reason string
		Err    error
	}

	// SigningError reports a failure to produce the Authorization header for one audience.
	SigningError struct {
		Audience string
		Err      error
	}

	// DeliveryError reports a non-2xx answer from a push service, or a transport failure (Status 0).
	DeliveryError struct {
		Endpoint  string
		Status    int
		Body      string
		Permanent bool
		Err       error
	}

	// StoreError reports a subscription store failure.
	StoreError struct {
		Op  string
		Err error
	}
)

func (e *KeyFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid vapid key: %s: %v", e.Reason, e.Err)
	}
	return "invalid vapid key: " + e.Reason
}

func (e *KeyFormatError) Unwrap() error { return e.Err }

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing vapid token for %q: %v", e.Audience, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }

// Cause lets errors.Cause reach a wrapped KeyFormatError.
func (e *SigningError) Cause() error { return e.Err }

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivering to %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("delivering to %s: status %d", e.Endpoint, e.Status)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// isGone reports whether the push service says the subscription no longer exists.
func isGone(status int) bool {
	return status == http.StatusGone || status == http.StatusNotFound
}
