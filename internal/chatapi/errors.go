package chatapi

import (
	"errors"
	"fmt"
)

// Kind separates failure causes for logs and metrics. Every kind produces
// the same fallback text in the transcript.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindTransport   Kind = "transport"
	KindMalformed   Kind = "malformed"
	KindApplication Kind = "application"
)

type Error struct {
	Kind       Kind
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("chat %s failure (http %d): %v", e.Kind, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("chat %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var ErrNotSuccess = errors.New("backend status is not success")

func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransport
}
