package sensor

import (
	"fmt"
	"strings"
)

// Kind identifies an upstream sensor channel.
type Kind int

const (
	Speed Kind = iota // bike wheel revolutions
	Cadence           // bike crank revolutions
	HeartRate
	Stride // foot pod speed, distance and stride count

	numKinds
)

// Kinds lists every channel kind.
func Kinds() []Kind {
	return []Kind{Speed, Cadence, HeartRate, Stride}
}

var kindNames = [numKinds]string{"speed", "cadence", "heart_rate", "stride"}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a channel name, accepting "hr" for heart_rate.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "hr" {
		return HeartRate, nil
	}
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sensor channel %q", s)
}

// Channel states reported by upstream sources.
const (
	StateIdle         = "idle"
	StateSearching    = "searching"
	StateTracking     = "tracking"
	StateDead         = "dead"
	StateClosed       = "closed"
	StateAccessDenied = "access_denied"
)
