package profile

import (
	"encoding/binary"
	"fmt"
)

// CSCMeasurement is a decoded CSC Measurement payload.
type CSCMeasurement struct {
	Flags            FeatureMask `json:"flags"`
	WheelRevolutions *uint32     `json:"wheel_revolutions,omitempty"`
	WheelEventTime   *uint16     `json:"wheel_event_time,omitempty"`
	CrankRevolutions *uint16     `json:"crank_revolutions,omitempty"`
	CrankEventTime   *uint16     `json:"crank_event_time,omitempty"`
}

// RSCMeasurement is a decoded RSC Measurement payload.
type RSCMeasurement struct {
	Flags   uint8   `json:"flags"`
	Speed   float64 `json:"speed_mps"`
	Cadence uint8   `json:"cadence_spm"`
}

// HeartRateMeasurement is a decoded Heart Rate Measurement payload.
type HeartRateMeasurement struct {
	Flags     uint8  `json:"flags"`
	HeartRate uint16 `json:"heart_rate_bpm"`
}

// DecodeCSC parses a CSC Measurement payload.
func DecodeCSC(b []byte) (CSCMeasurement, error) {
	var m CSCMeasurement
	if len(b) < 1 {
		return m, fmt.Errorf("csc measurement: empty payload")
	}
	m.Flags = FeatureMask(b[0])
	want := 1
	if m.Flags&CSCWheelRevolution != 0 {
		want += 6
	}
	if m.Flags&CSCCrankRevolution != 0 {
		want += 4
	}
	if len(b) != want {
		return m, fmt.Errorf("csc measurement: flags 0x%02x need %d bytes, got %d", b[0], want, len(b))
	}

	off := 1
	if m.Flags&CSCWheelRevolution != 0 {
		revs := binary.LittleEndian.Uint32(b[off:])
		t := binary.LittleEndian.Uint16(b[off+4:])
		m.WheelRevolutions, m.WheelEventTime = &revs, &t
		off += 6
	}
	if m.Flags&CSCCrankRevolution != 0 {
		revs := binary.LittleEndian.Uint16(b[off:])
		t := binary.LittleEndian.Uint16(b[off+2:])
		m.CrankRevolutions, m.CrankEventTime = &revs, &t
	}
	return m, nil
}

// DecodeRSC parses the 4-byte RSC Measurement payload produced by EncodeRSC.
func DecodeRSC(b []byte) (RSCMeasurement, error) {
	if len(b) != 4 {
		return RSCMeasurement{}, fmt.Errorf("rsc measurement: want 4 bytes, got %d", len(b))
	}
	return RSCMeasurement{
		Flags:   b[0],
		Speed:   float64(b[2]) + float64(b[1])/256,
		Cadence: b[3],
	}, nil
}

// DecodeHeartRate parses a Heart Rate Measurement payload in either value format.
func DecodeHeartRate(b []byte) (HeartRateMeasurement, error) {
	if len(b) < 2 {
		return HeartRateMeasurement{}, fmt.Errorf("heart rate measurement: want at least 2 bytes, got %d", len(b))
	}
	m := HeartRateMeasurement{Flags: b[0], HeartRate: uint16(b[1])}
	if b[0]&0x01 != 0 {
		if len(b) < 3 {
			return m, fmt.Errorf("heart rate measurement: 16-bit format needs 3 bytes, got %d", len(b))
		}
		m.HeartRate = binary.LittleEndian.Uint16(b[1:])
	}
	return m, nil
}

// DecodeMeasurement parses a payload of the given profile into one of the typed results.
func DecodeMeasurement(id ID, b []byte) (any, error) {
	switch id {
	case CyclingSpeedCadence:
		return DecodeCSC(b)
	case RunningSpeedCadence:
		return DecodeRSC(b)
	case HeartRate:
		return DecodeHeartRate(b)
	}
	return nil, &NotFoundError{Resource: "profile", Name: id.String()}
}
