package models

import (
	"net"
	"strconv"
	"time"
)

// Damper is the mechanical air-damper state reported by a fan.
type Damper string

const (
	DamperOperating    Damper = "operating"
	DamperNotOperating Damper = "not_operating"
	DamperUnknown      Damper = "unknown"
)

// defaultMaxSpeed applies to models missing from modelSpeeds.
const defaultMaxSpeed = 7

// modelSpeeds maps a reported model string to its number of discrete speed levels.
var modelSpeeds = map[string]int{
	"1.0e": 7,
	"2.5e": 7,
	"3.5e": 7,
	"4.4e": 10,
	"5.0e": 10,
	"4300": 10,
}

// FanCharacteristics is a point-in-time snapshot of one fan as reported by the device.
type FanCharacteristics struct {
	MACAddr             string `json:"mac_addr"`
	Model               string `json:"model"`
	Speed               int    `json:"speed"` // 0 = off
	Damper              Damper `json:"damper"`
	Interlock1          bool   `json:"interlock1"`
	Interlock2          bool   `json:"interlock2"`
	TimerHoursRemaining int    `json:"timer_hours_remaining"` // 0 = no timer

	IPAddr          string `json:"ip_addr,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	CFM             int    `json:"cfm,omitempty"`
	PowerWatts      int    `json:"power_watts,omitempty"`
	HouseTempF      *int   `json:"house_temp_f,omitempty"`
	AtticTempF      *int   `json:"attic_temp_f,omitempty"`
	OutsideTempF    *int   `json:"outside_temp_f,omitempty"`
}

// InterlockAsserted reports whether any safety interlock forbids running the fan.
func (c FanCharacteristics) InterlockAsserted() bool {
	return c.Interlock1 || c.Interlock2
}

// Permits reports whether the interlocks allow the given speed level.
// Level 0 is always allowed.
func (c FanCharacteristics) Permits(level int) bool {
	return level == 0 || !c.InterlockAsserted()
}

// MaxSpeed returns the highest speed level for the fan's model.
func (c FanCharacteristics) MaxSpeed() int {
	if n, ok := modelSpeeds[c.Model]; ok {
		return n
	}
	return defaultMaxSpeed
}

// Equal compares two snapshots field by field, including the optional temperatures.
func (c FanCharacteristics) Equal(o FanCharacteristics) bool {
	a, b := c, o
	if !equalIntPtr(a.HouseTempF, b.HouseTempF) ||
		!equalIntPtr(a.AtticTempF, b.AtticTempF) ||
		!equalIntPtr(a.OutsideTempF, b.OutsideTempF) {
		return false
	}
	a.HouseTempF, a.AtticTempF, a.OutsideTempF = nil, nil, nil
	b.HouseTempF, b.AtticTempF, b.OutsideTempF = nil, nil, nil
	return a == b
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DeviceAddress is where one physical fan answers on the LAN.
type DeviceAddress struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (a DeviceAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// ScanResult is one fan observed at an address during a scan session.
type ScanResult struct {
	Chars      FanCharacteristics `json:"chars"`
	Address    DeviceAddress      `json:"address"`
	ObservedAt time.Time          `json:"observed_at"`
}

// ControllerState is the lifecycle state of a fan controller.
type ControllerState string

const (
	StateUnknown        ControllerState = "unknown"
	StateSynchronized   ControllerState = "synchronized"
	StateCommandPending ControllerState = "command_pending"
	StateFaulted        ControllerState = "faulted"
	StateStale          ControllerState = "stale"
)

// FanStatus is the published snapshot of a controller.
type FanStatus struct {
	MACAddr   string             `json:"mac_addr"`
	Name      string             `json:"name,omitempty"`
	Address   DeviceAddress      `json:"address"`
	Chars     FanCharacteristics `json:"chars"`
	State     ControllerState    `json:"state"`
	Failures  int                `json:"failures"`
	UpdatedAt time.Time          `json:"updated_at"`
	Seq       uint64             `json:"seq"`
}
