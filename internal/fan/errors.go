package fan

import (
	"errors"
	"fmt"
)

// ErrCommandRejected wraps every reason a command is refused without a device exchange.
var ErrCommandRejected = errors.New("command rejected")

var (
	ErrBusy            = fmt.Errorf("%w: another exchange is in flight", ErrCommandRejected)
	ErrInterlock       = fmt.Errorf("%w: interlock asserted", ErrCommandRejected)
	ErrStale           = fmt.Errorf("%w: fan not seen in the latest scan", ErrCommandRejected)
	ErrFaulted         = fmt.Errorf("%w: fan is faulted", ErrCommandRejected)
	ErrNotSynchronized = fmt.Errorf("%w: fan state not known yet", ErrCommandRejected)
	ErrInvalidLevel    = fmt.Errorf("%w: invalid speed level", ErrCommandRejected)
	ErrInvalidHours    = fmt.Errorf("%w: invalid timer hours", ErrCommandRejected)
)

// ErrFatalFault is returned by Refresh while the controller is faulted.
var ErrFatalFault = errors.New("fan: fatal fault")

// errWrongDevice means the address now answers with another fan's identity.
var errWrongDevice = errors.New("fan: address answered with a different mac")
