package resources

import (
	"errors"
	"fmt"
)

// Failure classes, usable as errors.Is targets against a *LoadError.
var (
	ErrValidation = errors.New("resource validation failed")
	ErrTransport  = errors.New("resource transport failed")
	ErrDecode     = errors.New("resource decode failed")
	ErrComposite  = errors.New("composite resource incomplete")
)

type ErrorClass int

const (
	ClassValidation ErrorClass = iota + 1
	ClassTransport
	ClassDecode
	ClassComposite
)

func (c ErrorClass) sentinel() error {
	switch c {
	case ClassValidation:
		return ErrValidation
	case ClassTransport:
		return ErrTransport
	case ClassDecode:
		return ErrDecode
	case ClassComposite:
		return ErrComposite
	default:
		return nil
	}
}

/**
 * @brief A typed load failure carrying the key, kind and locator of the
 * request that produced it plus the original cause.
 */
type LoadError struct {
	Class   ErrorClass
	Key     string
	Type    ResourceType
	Locator string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if msg == "" && e.Class.sentinel() != nil {
		msg = e.Class.sentinel().Error()
	}
	s := fmt.Sprintf("%s: key=%q kind=%s locator=%q", msg, e.Key, e.Type, e.Locator)
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Is matches the class sentinels so callers can do
// errors.Is(err, resources.ErrDecode) without unwrapping manually.
func (e *LoadError) Is(target error) bool {
	return target == e.Class.sentinel()
}

// NewLoadError builds a LoadError with a class-derived default message.
func NewLoadError(class ErrorClass, key string, t ResourceType, locator string, cause error) *LoadError {
	return &LoadError{Class: class, Key: key, Type: t, Locator: locator, Cause: cause}
}

// NewLoadErrorMsg builds a LoadError with an explicit message, used where
// two failure modes share a class but must stay distinguishable.
func NewLoadErrorMsg(class ErrorClass, msg, key string, t ResourceType, locator string, cause error) *LoadError {
	return &LoadError{Class: class, Key: key, Type: t, Locator: locator, Message: msg, Cause: cause}
}
