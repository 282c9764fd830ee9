package metrics

import "errors"

// Domain-specific errors for the metrics sink.
var (
	// ErrDisabled is returned by Connect when metrics are disabled in config.
	ErrDisabled = errors.New("metrics: disabled in configuration")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("metrics: connection failed")

	// ErrNotConnected is returned when operating on a closed client.
	ErrNotConnected = errors.New("metrics: client not connected")
)
