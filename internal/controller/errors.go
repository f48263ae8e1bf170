package controller

import (
	"errors"
	"fmt"

	"github.com/wysentanu/localcast/internal/dlna"
	"github.com/wysentanu/localcast/internal/media"
)

// Kind classifies a playback error for API clients. The string values are
// part of the JSON surface.
type Kind string

const (
	KindFileNotFound      Kind = "file_not_found"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindNoDevicesFound    Kind = "no_devices_found"
	KindNetworkError      Kind = "network_error"
	KindActionTransport   Kind = "action_transport"
	KindActionFault       Kind = "action_fault"
	KindActionMalformed   Kind = "action_malformed"
	KindMediaServerError  Kind = "media_server_error"
	KindInvalidArgument   Kind = "invalid_argument"
)

// Error pairs a Kind with the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// ErrNoDevices reports that a discovery round finished without any renderer
// responding. Discovery itself treats an empty result as success; callers
// that need a renderer surface this.
var ErrNoDevices = &Error{Kind: KindNoDevicesFound, Msg: "no renderers responded"}

// KindOf extracts the Kind from an error chain. Unclassified errors report
// as network errors, the catch-all for anything that left the machine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetworkError
}

// wrapAction classifies an AVTransport invocation failure.
func wrapAction(msg string, err error) error {
	if err == nil {
		return nil
	}
	var (
		fault     *dlna.FaultError
		transport *dlna.TransportError
		malformed *dlna.MalformedError
	)
	switch {
	case errors.As(err, &fault):
		return newError(KindActionFault, msg, err)
	case errors.As(err, &transport):
		return newError(KindActionTransport, msg, err)
	case errors.As(err, &malformed):
		return newError(KindActionMalformed, msg, err)
	default:
		return newError(KindNetworkError, msg, err)
	}
}

// wrapProbe classifies a media validation failure.
func wrapProbe(path string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, media.ErrUnsupported):
		return newError(KindUnsupportedFormat, path, err)
	default:
		return newError(KindFileNotFound, path, err)
	}
}
