package metrics

import "errors"

var (
	ErrInvalidRule   = errors.New("invalid alert rule")
	ErrInvalidConfig = errors.New("invalid metrics configuration")
	ErrHistoryQuery  = errors.New("failed to query delivery history")
	ErrHistoryWrite  = errors.New("failed to persist delivery history")
)
