package house

import "airspace_fan/internal/fan"

// Selection is the result of looking a fan up by MAC: NoDevice or Device.
type Selection interface {
	selection()
}

// NoDevice means no controller, active or stale, has the MAC.
type NoDevice struct{}

// Device carries the controller for the MAC. It may be stale.
type Device struct {
	Controller *fan.Controller
}

func (NoDevice) selection() {}
func (Device) selection()   {}
