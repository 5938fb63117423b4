package render

import (
	"errors"
	"fmt"
)

// Status is the outcome of an acquire or present request.
type Status int

const (
	StatusOK Status = iota
	// StatusOutOfDate means the surface changed incompatibly. The image
	// index returned with it must not be used.
	StatusOutOfDate
	// StatusSuboptimal means the image is usable this frame but the
	// swapchain should be rebuilt before the next acquire.
	StatusSuboptimal
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOutOfDate:
		return "out of date"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	ErrOutOfDate  = errors.New("render: swapchain out of date")
	ErrSuboptimal = errors.New("render: swapchain suboptimal")

	// ErrSurfaceIncompatible means the requested extent lies outside
	// the surface's capability bounds.
	ErrSurfaceIncompatible = errors.New("render: surface incompatible with requested extent")

	// ErrSwapFormatChanged means a rebuild negotiated a color or depth
	// format different from the previous generation. Pipelines built
	// against the old formats would be invalid.
	ErrSwapFormatChanged = errors.New("render: swapchain image format has changed")

	// ErrNoSurfaceFormat means the surface reported no pixel formats.
	ErrNoSurfaceFormat = errors.New("render: surface has no pixel formats")

	// ErrNoDepthFormat means none of the candidate depth formats is
	// supported for optimal-tiling depth attachments.
	ErrNoDepthFormat = errors.New("render: no supported depth format")

	// ErrZeroExtent means the surface reported a zero current extent
	// while the window did not. Building waits for events and retries.
	ErrZeroExtent = errors.New("render: surface reports a zero extent")

	ErrClosed = errors.New("render: renderer closed")
)

// Kind classifies an error by how a caller may react to it.
type Kind int

const (
	// KindAPI is any primitive failure not covered by the other kinds.
	// It is process-fatal.
	KindAPI Kind = iota
	// KindTransient is handled by the rebuild protocol.
	KindTransient
	// KindConfiguration means an environment assumption was violated.
	// There is no automatic retry.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConfiguration:
		return "configuration"
	default:
		return "api"
	}
}

// KindOf reports the kind of err. A nil error has KindTransient so
// callers can treat it as recoverable.
func KindOf(err error) Kind {
	switch {
	case err == nil,
		errors.Is(err, ErrOutOfDate),
		errors.Is(err, ErrSuboptimal),
		errors.Is(err, ErrZeroExtent):
		return KindTransient
	case errors.Is(err, ErrSurfaceIncompatible),
		errors.Is(err, ErrSwapFormatChanged),
		errors.Is(err, ErrNoSurfaceFormat),
		errors.Is(err, ErrNoDepthFormat),
		errors.Is(err, ErrInvalidConfig):
		return KindConfiguration
	default:
		return KindAPI
	}
}

// IsFatal reports whether err must terminate the run.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) != KindTransient
}

// statusError converts a non-OK status to its sentinel, keeping the
// primitive's error when there is one.
func statusError(op string, s Status, err error) error {
	switch s {
	case StatusOK:
		return nil
	case StatusOutOfDate:
		return fmt.Errorf("%s: %w", op, ErrOutOfDate)
	case StatusSuboptimal:
		return fmt.Errorf("%s: %w", op, ErrSuboptimal)
	}
	if err == nil {
		err = errors.New("unknown failure")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ContractViolation is the panic value raised when a Renderer method is
// called out of order. It indicates a caller bug, not a runtime
// condition.
type ContractViolation struct {
	Op  string
	Msg string
}

func (c *ContractViolation) Error() string {
	return "render: " + c.Op + ": " + c.Msg
}

// mustState panics with a ContractViolation unless cond holds.
func mustState(cond bool, op, msg string) {
	if !cond {
		panic(&ContractViolation{Op: op, Msg: msg})
	}
}
