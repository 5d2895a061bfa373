package profile

import (
	"fmt"
	"strings"
	"sync"
)

// FeatureMask is the capability bitmap advertised through a feature characteristic.
type FeatureMask uint8

// CSC feature bits; they double as the measurement flag bits.
const (
	CSCWheelRevolution FeatureMask = 1 << 0
	CSCCrankRevolution FeatureMask = 1 << 1

	cscFlagBits = CSCWheelRevolution | CSCCrankRevolution
)

var featureNames = map[ID]map[string]FeatureMask{
	CyclingSpeedCadence: {
		"wheel": CSCWheelRevolution,
		"crank": CSCCrankRevolution,
	},
	RunningSpeedCadence: {},
	HeartRate:           {},
}

// ParseFeatures turns feature names ("wheel", "crank") into a mask for the given profile.
func ParseFeatures(id ID, names []string) (FeatureMask, error) {
	known, ok := featureNames[id]
	if !ok {
		return 0, &NotFoundError{Resource: "profile", Name: id.String()}
	}
	var mask FeatureMask
	for _, n := range names {
		bit, ok := known[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, &NotFoundError{Resource: "feature", Name: fmt.Sprintf("%s.%s", id, n)}
		}
		mask |= bit
	}
	return mask, nil
}

// FeatureNames lists the names set in mask, in bit order.
func FeatureNames(id ID, mask FeatureMask) []string {
	var names []string
	for _, n := range []string{"wheel", "crank"} {
		if bit, ok := featureNames[id][n]; ok && mask&bit != 0 {
			names = append(names, n)
		}
	}
	return names
}

// Registry holds one feature mask per profile. A profile's mask is frozen once the
// profile is sealed, which happens when it is published.
type Registry struct {
	mu     sync.RWMutex
	masks  map[ID]FeatureMask
	sealed map[ID]bool
}

// NewRegistry creates a registry with every mask cleared.
func NewRegistry() *Registry {
	return &Registry{
		masks:  make(map[ID]FeatureMask),
		sealed: make(map[ID]bool),
	}
}

// Configure sets the mask for id.
func (r *Registry) Configure(id ID, mask FeatureMask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed[id] {
		return fmt.Errorf("configure %s: %w", id, ErrRegistrySealed)
	}
	r.masks[id] = mask
	return nil
}

// MaskFor returns the configured mask for id, zero when never configured.
func (r *Registry) MaskFor(id ID) FeatureMask {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.masks[id]
}

// Seal freezes the mask for id.
func (r *Registry) Seal(id ID) {
	r.mu.Lock()
	r.sealed[id] = true
	r.mu.Unlock()
}

// Sealed reports whether id can still be configured.
func (r *Registry) Sealed(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed[id]
}
