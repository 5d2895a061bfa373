package profile

import (
	"encoding/binary"
	"math"

	"github.com/srg/cscbridge/internal/sensor"
)

// EncodeCSC builds a CSC Measurement (0x2A5B). Only the wheel and crank bits of mask
// are honored; the same bits become the payload flags.
//
//	flags(1) [wheel revs u32 LE, wheel time u16 LE] [crank revs u16 LE, crank time u16 LE]
func EncodeCSC(mask FeatureMask, r sensor.Reading) []byte {
	flags := mask & cscFlagBits
	buf := make([]byte, 1, 11)
	buf[0] = byte(flags)

	if flags&CSCWheelRevolution != 0 {
		buf = binary.LittleEndian.AppendUint32(buf, r.WheelRevolutions)
		buf = binary.LittleEndian.AppendUint16(buf, r.WheelEventTime)
	}
	if flags&CSCCrankRevolution != 0 {
		buf = binary.LittleEndian.AppendUint16(buf, r.CrankRevolutions)
		buf = binary.LittleEndian.AppendUint16(buf, r.CrankEventTime)
	}
	return buf
}

// EncodeHeartRate builds a Heart Rate Measurement (0x2A37) in the 8-bit value format.
// Rates above 255 are truncated to their low byte.
func EncodeHeartRate(r sensor.Reading) []byte {
	return []byte{0x00, byte(r.HeartRate)}
}

// EncodeRSC builds a RSC Measurement (0x2A53) with no optional fields:
//
//	flags(1)=0, speed fraction(1), speed integer(1), cadence(1)
//
// Speed is in m/s; the fraction byte is the first eight binary digits of the
// fractional part and every value is truncated to 8 bits.
func EncodeRSC(r sensor.Reading) []byte {
	whole, frac := splitSpeed(r.Speed)
	return []byte{0x00, frac, whole, byte(r.StridesPerMinute)}
}

// EncodeFeature builds the value of a feature characteristic.
func EncodeFeature(mask FeatureMask) []byte {
	return []byte{byte(mask), 0x00}
}

// EncodeMeasurement dispatches to the encoder of the given profile.
func EncodeMeasurement(id ID, mask FeatureMask, r sensor.Reading) []byte {
	switch id {
	case CyclingSpeedCadence:
		return EncodeCSC(mask, r)
	case RunningSpeedCadence:
		return EncodeRSC(r)
	case HeartRate:
		return EncodeHeartRate(r)
	default:
		return nil
	}
}

// splitSpeed returns the truncated integer part and the 8-bit binary fraction of speed.
// Negative, infinite and NaN speeds encode as zero.
func splitSpeed(speed float32) (whole, frac byte) {
	v := float64(speed)
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, 0
	}
	integral := math.Trunc(v)
	whole = byte(uint64(integral))

	f := v - integral
	for i := 0; i < 8; i++ {
		f *= 2
		if f >= 1 {
			frac |= 1 << (7 - i)
			f--
		}
	}
	return whole, frac
}
