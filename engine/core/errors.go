package core

import (
	"errors"
)

var (
	ErrNilDevice           = errors.New("nil device handle")
	ErrInvalidDescSetCount = errors.New("descriptor set count must be at least 1")
	ErrWatcherClosed       = errors.New("shader watcher already closed")
)
