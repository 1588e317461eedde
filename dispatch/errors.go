package dispatch

import "errors"

var (
	// ErrNormalization indicates a raw event could not be turned into an
	// IncomingMessage.
	ErrNormalization = errors.New("event normalization failed")

	// ErrDispatcherClosed indicates HandleEvent was called after Close.
	ErrDispatcherClosed = errors.New("dispatcher is closed")

	// ErrNoForwarder indicates the worker was started without a forwarding
	// collaborator.
	ErrNoForwarder = errors.New("no forwarder configured")
)
