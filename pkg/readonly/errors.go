package readonly

import (
	"errors"
	"fmt"
)

var (
	// ErrReadOnly matches every ViolationError via errors.Is.
	ErrReadOnly = errors.New("readonly: collection is read-only")
	// ErrUnsupportedCapability matches every UnsupportedCapabilityError.
	ErrUnsupportedCapability = errors.New("readonly: unsupported capability")
	// ErrNilCollection is returned by New when no collection is supplied.
	ErrNilCollection = errors.New("readonly: collection cannot be nil")
)

// Mutation descriptions carried by ViolationError.Action.
const (
	ActionAdd    = "add an element to"
	ActionClear  = "clear"
	ActionRemove = "remove an element from"
	ActionSet    = "set an element in"
)

// CapabilityQueryable names the criteria matching capability.
const CapabilityQueryable = "Queryable"

// ViolationError reports an attempted mutation through a read-only view.
// It is a programming error on the caller's side; the wrapped collection was
// not touched.
type ViolationError struct {
	Action string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("readonly: cannot %s a read-only collection", e.Action)
}

func (e *ViolationError) Is(target error) bool { return target == ErrReadOnly }

// CallerError marks the violation as misuse rather than a runtime fault.
func (e *ViolationError) CallerError() bool { return true }

// UnsupportedCapabilityError reports that the wrapped collection lacks an
// optional capability.
type UnsupportedCapabilityError struct {
	Capability string
	// Type is the concrete Go type of the wrapped collection.
	Type string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("readonly: collection %s does not implement %s, so Matching cannot be called on it", e.Type, e.Capability)
}

func (e *UnsupportedCapabilityError) Is(target error) bool {
	return target == ErrUnsupportedCapability
}

// IsCallerError reports whether err, or any error it wraps, is flagged as
// caller misuse.
func IsCallerError(err error) bool {
	var ce interface{ CallerError() bool }
	return errors.As(err, &ce) && ce.CallerError()
}
