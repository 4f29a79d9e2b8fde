package httpserver

import "errors"

var (
	// ErrStart indicates the listener could not be opened or the server
	// terminated abnormally.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown indicates the drain deadline passed with requests in flight.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
