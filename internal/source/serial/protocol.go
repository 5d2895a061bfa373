package serial

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/srg/cscbridge/internal/sensor"
)

// Target receives parsed sensor data.
type Target interface {
	Apply(u sensor.Update)
	SetState(kind sensor.Kind, state string)
}

// Command is one parsed protocol line: either an Update or a state change.
type Command struct {
	Update sensor.Update
	Kind   sensor.Kind
	State  string
}

// Apply delivers the command to t.
func (c Command) Apply(t Target) {
	if c.Update != nil {
		t.Apply(c.Update)
		return
	}
	t.SetState(c.Kind, c.State)
}

// ParseLine parses one line of the text protocol:
//
//	wheel <revs> <event_s>
//	crank <revs> <event_s>
//	hr <bpm>
//	speed <mps>
//	strides <count>
//	distance <m>
//	state <channel> <name>
//
// Values are stamped with now (ms). Blank lines and lines starting with '#' yield
// (nil, nil).
func ParseLine(line string, now int64) (*Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Fields(line)
	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "wheel", "crank":
		nums, err := parseNumbers(verb, args, 2)
		if err != nil {
			return nil, err
		}
		if verb == "wheel" {
			return &Command{Update: sensor.WheelEvent{EstTimestamp: now, CumulativeRevolutions: int64(nums[0]), EventTime: nums[1]}}, nil
		}
		return &Command{Update: sensor.CrankEvent{EstTimestamp: now, CumulativeRevolutions: int64(nums[0]), EventTime: nums[1]}}, nil

	case "hr", "heart_rate":
		nums, err := parseNumbers(verb, args, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Update: sensor.HeartRateEvent{EstTimestamp: now, BPM: int(nums[0])}}, nil

	case "speed":
		nums, err := parseNumbers(verb, args, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Update: sensor.StrideSpeedEvent{EstTimestamp: now, Speed: nums[0]}}, nil

	case "strides":
		nums, err := parseNumbers(verb, args, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Update: sensor.StrideCountEvent{EstTimestamp: now, Cumulative: int64(nums[0])}}, nil

	case "distance":
		nums, err := parseNumbers(verb, args, 1)
		if err != nil {
			return nil, err
		}
		return &Command{Update: sensor.StrideDistanceEvent{EstTimestamp: now, Distance: nums[0]}}, nil

	case "state":
		if len(args) != 2 {
			return nil, fmt.Errorf("state: want <channel> <name>, got %d argument(s)", len(args))
		}
		kind, err := sensor.ParseKind(args[0])
		if err != nil {
			return nil, fmt.Errorf("state: %w", err)
		}
		return &Command{Kind: kind, State: strings.ToLower(args[1])}, nil
	}
	return nil, fmt.Errorf("unknown command %q", verb)
}

func parseNumbers(verb string, args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s: want %d argument(s), got %d", verb, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", verb, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
