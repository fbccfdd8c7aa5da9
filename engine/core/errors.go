package core

import (
	"errors"
)

type ErrorKind uint8

const (
	ErrorKindUnknown ErrorKind = iota
	// No suitable device/surface combination or a bad configuration. Fatal.
	ErrorKindConfiguration
	// Out-of-date or suboptimal surface. Absorbed by the frame pacer.
	ErrorKindTransientStaleness
	// Allocation or GPU object creation failure. Fatal.
	ErrorKindResourceExhaustion
	// Programming error. Fatal.
	ErrorKindInvariantViolation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfiguration:
		return "configuration"
	case ErrorKindTransientStaleness:
		return "transient staleness"
	case ErrorKindResourceExhaustion:
		return "resource exhaustion"
	case ErrorKindInvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrTransientStaleness = errors.New("surface is stale")
	ErrResourceExhaustion = errors.New("resource exhaustion")
	ErrInvariantViolation = errors.New("invariant violation")
)

var (
	ErrOutOfRange    = wrapKind(ErrInvariantViolation, "index out of range")
	ErrEmpty         = wrapKind(ErrInvariantViolation, "store is empty")
	ErrDestroyed     = wrapKind(ErrInvariantViolation, "store was destroyed")
	ErrAbsentValue   = wrapKind(ErrInvariantViolation, "optional value is absent")
	ErrCountMismatch = wrapKind(ErrInvariantViolation, "surface resource count does not match chain image count")

	ErrChainCreateFailed = wrapKind(ErrResourceExhaustion, "failed to create swapchain")
	ErrObjectCreate      = wrapKind(ErrResourceExhaustion, "failed to create gpu object")

	ErrNoSuitableDevice = wrapKind(ErrConfiguration, "no physical device meets the requirements")
	ErrInvalidConfig    = wrapKind(ErrConfiguration, "invalid configuration")

	ErrOutOfDate  = wrapKind(ErrTransientStaleness, "swapchain out of date")
	ErrSuboptimal = wrapKind(ErrTransientStaleness, "swapchain suboptimal")
	ErrMinimized  = wrapKind(ErrTransientStaleness, "surface has a zero extent")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

func wrapKind(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Classify maps any error produced by the engine to its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindUnknown
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, ErrTransientStaleness):
		return ErrorKindTransientStaleness
	case errors.Is(err, ErrResourceExhaustion):
		return ErrorKindResourceExhaustion
	case errors.Is(err, ErrInvariantViolation):
		return ErrorKindInvariantViolation
	default:
		return ErrorKindUnknown
	}
}

// IsFatal reports whether the error must stop the process.
func IsFatal(err error) bool {
	return err != nil && Classify(err) != ErrorKindTransientStaleness
}
