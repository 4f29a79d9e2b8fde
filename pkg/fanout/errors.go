package fanout

import "errors"

var (
	ErrInvalidDestination = errors.New("invalid log destination")
	ErrDuplicateSink      = errors.New("sink already registered")
	ErrDispatcherClosed   = errors.New("dispatcher is closed")
	ErrSinkWrite          = errors.New("sink write failed")
	ErrFormat             = errors.New("failed to format record")
	ErrParse              = errors.New("failed to parse record")
)
