// Package transport performs single request/response exchanges with one fan.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airspace_fan/internal/models"
)

// Action is a device command code as understood by the fan firmware.
type Action int

const (
	ActionFaster  Action = 1
	ActionAddHour Action = 2
	ActionSlower  Action = 3
	ActionOff     Action = 4
)

func (a Action) String() string {
	switch a {
	case ActionFaster:
		return "faster"
	case ActionAddHour:
		return "add_hour"
	case ActionSlower:
		return "slower"
	case ActionOff:
		return "off"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Valid reports whether a is a known command code.
func (a Action) Valid() bool {
	return a >= ActionFaster && a <= ActionOff
}

// Command is one outbound instruction.
type Command struct {
	Action Action
}

// Acknowledgment is the device state returned in reply to a command.
type Acknowledgment struct {
	Chars      models.FanCharacteristics
	ReceivedAt time.Time
}

// Transport exchanges messages with fans. Implementations allow at most one
// outstanding exchange per address and never retry.
type Transport interface {
	Probe(ctx context.Context, addr models.DeviceAddress) (models.FanCharacteristics, error)
	Send(ctx context.Context, addr models.DeviceAddress, cmd Command) (Acknowledgment, error)
}

// ErrNotFound means something answered at the address but it is not a fan.
var ErrNotFound = errors.New("no fan at address")

// ErrSlotWait means the exchange never started: the caller gave up while
// another exchange with the same address was in flight.
var ErrSlotWait = errors.New("gave up waiting for address")

// ErrInvalidCommand is returned for unknown action codes; nothing is sent.
var ErrInvalidCommand = errors.New("invalid command")

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	// KindUnreachable: nothing answered (refused, timed out, no route).
	KindUnreachable ErrorKind = iota + 1
	// KindMalformed: a fan answered but the reply could not be understood.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is a failed exchange with one address.
type Error struct {
	Kind ErrorKind
	Addr models.DeviceAddress
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Addr, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsAbsent reports whether err means "no device here": not found or unreachable.
func IsAbsent(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == KindUnreachable
	}
	return errors.Is(err, ErrNotFound)
}

// IsMalformed reports whether err is a reply that could not be decoded.
func IsMalformed(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindMalformed
}

// IsDeviceFailure reports whether err came from the device exchange itself,
// as opposed to the caller's context being cancelled.
func IsDeviceFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var te *Error
	return errors.As(err, &te)
}
