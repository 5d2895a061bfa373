package profile

import (
	"fmt"

	"github.com/go-ble/ble"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/srg/cscbridge/internal/sensor"
)

// ID identifies one of the published GATT profiles.
type ID int

const (
	CyclingSpeedCadence ID = iota
	RunningSpeedCadence
	HeartRate
)

func (id ID) String() string {
	switch id {
	case CyclingSpeedCadence:
		return "csc"
	case RunningSpeedCadence:
		return "rsc"
	case HeartRate:
		return "hr"
	default:
		return fmt.Sprintf("profile(%d)", int(id))
	}
}

// ParseID resolves a profile name as used in config files and CLI flags.
func ParseID(name string) (ID, error) {
	switch name {
	case "csc", "cycling_speed_cadence":
		return CyclingSpeedCadence, nil
	case "rsc", "running_speed_cadence":
		return RunningSpeedCadence, nil
	case "hr", "heart_rate":
		return HeartRate, nil
	}
	return 0, &NotFoundError{Resource: "profile", Name: name}
}

// Assigned numbers used by the bridge.
var (
	CSCServiceUUID     = ble.UUID16(0x1816)
	CSCMeasurementUUID = ble.UUID16(0x2A5B)
	CSCFeatureUUID     = ble.UUID16(0x2A5C)

	RSCServiceUUID     = ble.UUID16(0x1814)
	RSCMeasurementUUID = ble.UUID16(0x2A53)
	RSCFeatureUUID     = ble.UUID16(0x2A54)

	HRServiceUUID     = ble.UUID16(0x180D)
	HRMeasurementUUID = ble.UUID16(0x2A37)

	ClientConfigUUID = ble.UUID16(0x2902)
)

// Client Characteristic Configuration values.
var (
	CCCDEnable  = []byte{0x01, 0x00}
	CCCDDisable = []byte{0x00, 0x00}
)

// Role is the part a characteristic plays inside its profile.
type Role int

const (
	RoleMeasurement Role = iota
	RoleFeature
)

func (r Role) String() string {
	if r == RoleFeature {
		return "feature"
	}
	return "measurement"
}

// Definition describes one GATT service the bridge publishes.
type Definition struct {
	ID          ID
	Name        string
	Service     ble.UUID
	Measurement ble.UUID
	// Feature is nil for profiles without a feature characteristic.
	Feature ble.UUID
	// Channels lists the sensor channels that feed the measurement.
	Channels []sensor.Kind
}

// HasFeature reports whether the profile exposes a readable feature characteristic.
func (d *Definition) HasFeature() bool {
	return len(d.Feature) > 0
}

// Characteristics lists the characteristics of the profile, measurement first.
func (d *Definition) Characteristics() []Characteristic {
	out := []Characteristic{{Profile: d, Role: RoleMeasurement, UUID: d.Measurement}}
	if d.HasFeature() {
		out = append(out, Characteristic{Profile: d, Role: RoleFeature, UUID: d.Feature})
	}
	return out
}

// Characteristic is the result of resolving a characteristic UUID.
type Characteristic struct {
	Profile *Definition
	Role    Role
	UUID    ble.UUID
}

// Properties returns the GATT properties of the characteristic.
func (c Characteristic) Properties() ble.Property {
	if c.Role == RoleFeature {
		return ble.CharRead
	}
	return ble.CharNotify
}

// Table is the static, ordered set of profile definitions.
type Table struct {
	defs  *orderedmap.OrderedMap[ID, *Definition]
	chars map[string]Characteristic
}

// DefaultTable returns the three profiles in publication order: CSC, RSC, HR.
func DefaultTable() *Table {
	return NewTable(
		&Definition{
			ID:          CyclingSpeedCadence,
			Name:        "Cycling Speed and Cadence",
			Service:     CSCServiceUUID,
			Measurement: CSCMeasurementUUID,
			Feature:     CSCFeatureUUID,
			Channels:    []sensor.Kind{sensor.Speed, sensor.Cadence},
		},
		&Definition{
			ID:          RunningSpeedCadence,
			Name:        "Running Speed and Cadence",
			Service:     RSCServiceUUID,
			Measurement: RSCMeasurementUUID,
			Feature:     RSCFeatureUUID,
			Channels:    []sensor.Kind{sensor.Stride},
		},
		&Definition{
			ID:          HeartRate,
			Name:        "Heart Rate",
			Service:     HRServiceUUID,
			Measurement: HRMeasurementUUID,
			Channels:    []sensor.Kind{sensor.HeartRate},
		},
	)
}

// NewTable builds a table from definitions; insertion order is publication order.
func NewTable(defs ...*Definition) *Table {
	t := &Table{
		defs:  orderedmap.New[ID, *Definition](),
		chars: make(map[string]Characteristic),
	}
	for _, d := range defs {
		t.defs.Set(d.ID, d)
		for _, c := range d.Characteristics() {
			t.chars[Key(c.UUID)] = c
		}
	}
	return t
}

// Get returns the definition for id.
func (t *Table) Get(id ID) (*Definition, bool) {
	return t.defs.Get(id)
}

// Definitions returns all definitions in publication order.
func (t *Table) Definitions() []*Definition {
	out := make([]*Definition, 0, t.defs.Len())
	for pair := t.defs.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Lookup resolves a characteristic UUID to its profile and role.
func (t *Table) Lookup(uuid ble.UUID) (Characteristic, error) {
	c, ok := t.chars[Key(uuid)]
	if !ok {
		return Characteristic{}, &NotFoundError{Resource: "characteristic", Name: Key(uuid)}
	}
	return c, nil
}

// IsClientConfig reports whether uuid names the CCCD.
func IsClientConfig(uuid ble.UUID) bool {
	return SameUUID(uuid, ClientConfigUUID)
}
