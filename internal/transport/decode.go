package transport

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"airspace_fan/internal/models"
)

// sensorAbsent is what the firmware reports for an unplugged temperature probe.
const sensorAbsent = -99

var tagPattern = regexp.MustCompile(`<([A-Za-z0-9_]+)>([^<]*)</([A-Za-z0-9_]+)>`)

// fanTags are the fields whose presence marks a reply as coming from a fan.
var fanTags = []string{"fanspd", "macaddr", "doorinprocess", "timeremaining"}

var (
	errMissingMAC   = errors.New("missing macaddr")
	errMissingSpeed = errors.New("missing fanspd")
)

// parseTags reads the flat <tag>value</tag> sequence into a map with lower-cased keys.
func parseTags(body []byte) map[string]string {
	out := make(map[string]string)
	for _, m := range tagPattern.FindAllSubmatch(body, -1) {
		open, closing := string(m[1]), string(m[3])
		if !strings.EqualFold(open, closing) {
			continue
		}
		out[strings.ToLower(open)] = strings.TrimSpace(string(m[2]))
	}
	return out
}

func decodeStatus(addr models.DeviceAddress, body []byte) (models.FanCharacteristics, error) {
	tags := parseTags(body)
	if !hasAny(tags, fanTags) {
		return models.FanCharacteristics{}, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}

	malformed := func(err error) (models.FanCharacteristics, error) {
		return models.FanCharacteristics{}, &Error{Kind: KindMalformed, Addr: addr, Err: err}
	}

	rawMAC := tags["macaddr"]
	if rawMAC == "" {
		return malformed(errMissingMAC)
	}
	mac, err := net.ParseMAC(rawMAC)
	if err != nil {
		return malformed(fmt.Errorf("macaddr %q: %w", rawMAC, err))
	}

	rawSpeed, ok := tags["fanspd"]
	if !ok {
		return malformed(errMissingSpeed)
	}
	speed, err := strconv.Atoi(rawSpeed)
	if err != nil || speed < 0 {
		return malformed(fmt.Errorf("fanspd %q", rawSpeed))
	}

	minutes, err := optionalInt(tags, "timeremaining")
	if err != nil {
		return malformed(err)
	}

	chars := models.FanCharacteristics{
		MACAddr:             mac.String(),
		Model:               tags["model"],
		Speed:               speed,
		Damper:              decodeDamper(tags),
		Interlock1:          tags["interlock1"] == "1",
		Interlock2:          tags["interlock2"] == "1",
		TimerHoursRemaining: minutesToHours(minutes),
		IPAddr:              tags["ipaddr"],
		SoftwareVersion:     tags["softver"],
	}
	chars.CFM, _ = optionalInt(tags, "cfm")
	chars.PowerWatts, _ = optionalInt(tags, "power")
	chars.HouseTempF = temperature(tags, "house_temp")
	chars.AtticTempF = temperature(tags, "attic_temp")
	chars.OutsideTempF = temperature(tags, "oa_temp")
	return chars, nil
}

func decodeDamper(tags map[string]string) models.Damper {
	switch tags["doorinprocess"] {
	case "1":
		return models.DamperOperating
	case "0":
		return models.DamperNotOperating
	default:
		return models.DamperUnknown
	}
}

func minutesToHours(m int) int {
	if m <= 0 {
		return 0
	}
	return (m + 59) / 60
}

func optionalInt(tags map[string]string, key string) (int, error) {
	raw, ok := tags[key]
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, raw, err)
	}
	return n, nil
}

func temperature(tags map[string]string, key string) *int {
	raw, ok := tags[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n == sensorAbsent {
		return nil
	}
	return &n
}

func hasAny(tags map[string]string, keys []string) bool {
	for _, k := range keys {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}

// EncodeStatus renders chars in the firmware's reply format.
// timerMinutes is reported as-is so callers can model partial hours.
func EncodeStatus(c models.FanCharacteristics, timerMinutes int) string {
	var b strings.Builder
	write := func(tag, val string) {
		b.WriteString("<" + tag + ">" + val + "</" + tag + ">")
	}
	bit := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	temp := func(p *int) string {
		if p == nil {
			return strconv.Itoa(sensorAbsent)
		}
		return strconv.Itoa(*p)
	}

	write("fanspd", strconv.Itoa(c.Speed))
	switch c.Damper {
	case models.DamperOperating:
		write("doorinprocess", "1")
	case models.DamperNotOperating:
		write("doorinprocess", "0")
	}
	write("timeremaining", strconv.Itoa(timerMinutes))
	write("macaddr", strings.ToUpper(c.MACAddr))
	write("ipaddr", c.IPAddr)
	write("model", c.Model)
	write("softver", c.SoftwareVersion)
	write("interlock1", bit(c.Interlock1))
	write("interlock2", bit(c.Interlock2))
	write("cfm", strconv.Itoa(c.CFM))
	write("power", strconv.Itoa(c.PowerWatts))
	write("house_temp", temp(c.HouseTempF))
	write("attic_temp", temp(c.AtticTempF))
	write("oa_temp", temp(c.OutsideTempF))
	return b.String()
}
