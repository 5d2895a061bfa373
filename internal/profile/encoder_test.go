package profile

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/cscbridge/internal/sensor"
)

func TestEncodeCSC(t *testing.T) {
	tests := []struct {
		name     string
		mask     FeatureMask
		reading  sensor.Reading
		expected []byte
	}{
		{
			name:     "wheel only",
			mask:     CSCWheelRevolution,
			reading:  sensor.Reading{WheelRevolutions: 100, WheelEventTime: 512},
			expected: []byte{0x01, 0x64, 0x00, 0x00, 0x00, 0x00, 0x02},
		},
		{
			name: "wheel and crank",
			mask: CSCWheelRevolution | CSCCrankRevolution,
			reading: sensor.Reading{
				WheelRevolutions: 1, WheelEventTime: 0,
				CrankRevolutions: 2, CrankEventTime: 1024,
			},
			expected: []byte{0x03, 0x01, 0, 0, 0, 0, 0, 0x02, 0, 0x00, 0x04},
		},
		{
			name:     "crank only",
			mask:     CSCCrankRevolution,
			reading:  sensor.Reading{WheelRevolutions: 99, CrankRevolutions: 0x0102, CrankEventTime: 0x0304},
			expected: []byte{0x02, 0x02, 0x01, 0x04, 0x03},
		},
		{
			name:     "no features",
			mask:     0,
			reading:  sensor.Reading{WheelRevolutions: 7, CrankRevolutions: 7},
			expected: []byte{0x00},
		},
		{
			name:     "unknown bits are dropped",
			mask:     0xFC | CSCWheelRevolution,
			reading:  sensor.Reading{WheelRevolutions: math.MaxUint32, WheelEventTime: math.MaxUint16},
			expected: []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EncodeCSC(tt.mask, tt.reading))
		})
	}
}

func TestEncodeCSCFlagsAndLength(t *testing.T) {
	r := sensor.Reading{WheelRevolutions: 5, WheelEventTime: 6, CrankRevolutions: 7, CrankEventTime: 8}
	for m := 0; m <= 0xFF; m++ {
		mask := FeatureMask(m)
		got := EncodeCSC(mask, r)

		wheel, crank := 0, 0
		if m&1 != 0 {
			wheel = 1
		}
		if m&2 != 0 {
			crank = 1
		}
		require.Len(t, got, 1+6*wheel+4*crank, "mask=0x%02x", m)
		assert.Equal(t, byte(m&0b11), got[0], "mask=0x%02x", m)
	}
}

func TestEncodeCSCWheelRoundTrip(t *testing.T) {
	for _, revs := range []uint32{0, 1, 0x01020304, math.MaxUint32} {
		t.Run(fmt.Sprintf("revs=%d", revs), func(t *testing.T) {
			payload := EncodeCSC(CSCWheelRevolution, sensor.Reading{WheelRevolutions: revs})
			assert.Equal(t, revs, binary.LittleEndian.Uint32(payload[1:5]))

			decoded, err := DecodeCSC(payload)
			require.NoError(t, err)
			require.NotNil(t, decoded.WheelRevolutions)
			assert.Equal(t, revs, *decoded.WheelRevolutions)
			assert.Nil(t, decoded.CrankRevolutions)
		})
	}
}

func TestEncodeHeartRate(t *testing.T) {
	tests := []struct {
		bpm      uint16
		expected byte
	}{
		{0, 0x00},
		{72, 72},
		{250, 0xFA},
		{255, 0xFF},
		{256, 0x00},
		{300, 0x2C},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("bpm=%d", tt.bpm), func(t *testing.T) {
			got := EncodeHeartRate(sensor.Reading{HeartRate: tt.bpm})
			assert.Equal(t, []byte{0x00, tt.expected}, got)
		})
	}
}

func TestEncodeRSC(t *testing.T) {
	tests := []struct {
		name     string
		speed    float32
		cadence  uint16
		expected []byte
	}{
		{"half", 7.5, 0, []byte{0x00, 0x80, 0x07, 0x00}},
		{"zero", 0.0, 0, []byte{0x00, 0x00, 0x00, 0x00}},
		{"quarters", 3.75, 170, []byte{0x00, 0xC0, 0x03, 0xAA}},
		{"eighth bit", 1.00390625, 0, []byte{0x00, 0x01, 0x01, 0x00}},
		{"below resolution truncates", 2.001, 0, []byte{0x00, 0x00, 0x02, 0x00}},
		{"integer wraps", 257.5, 0, []byte{0x00, 0x80, 0x01, 0x00}},
		{"cadence truncates", 1, 300, []byte{0x00, 0x00, 0x01, 0x2C}},
		{"negative", -3.5, 0, []byte{0x00, 0x00, 0x00, 0x00}},
		{"nan", float32(math.NaN()), 0, []byte{0x00, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeRSC(sensor.Reading{Speed: tt.speed, StridesPerMinute: tt.cadence})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeRSCDecodesBack(t *testing.T) {
	for _, speed := range []float32{0, 0.5, 1.25, 4.125, 12.875} {
		m, err := DecodeRSC(EncodeRSC(sensor.Reading{Speed: speed}))
		require.NoError(t, err)
		assert.InDelta(t, float64(speed), m.Speed, 1.0/256)
	}
}

func TestEncodeFeature(t *testing.T) {
	assert.Equal(t, []byte{0x03, 0x00}, EncodeFeature(CSCWheelRevolution|CSCCrankRevolution))
	assert.Equal(t, []byte{0x00, 0x00}, EncodeFeature(0))
}

func TestEncodeMeasurement(t *testing.T) {
	r := sensor.Reading{WheelRevolutions: 100, WheelEventTime: 512, HeartRate: 61, Speed: 7.5}

	assert.Equal(t, EncodeCSC(CSCWheelRevolution, r), EncodeMeasurement(CyclingSpeedCadence, CSCWheelRevolution, r))
	assert.Equal(t, EncodeRSC(r), EncodeMeasurement(RunningSpeedCadence, 0xFF, r))
	assert.Equal(t, []byte{0x00, 61}, EncodeMeasurement(HeartRate, 0xFF, r))
	assert.Nil(t, EncodeMeasurement(ID(42), 0, r))
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeCSC(nil)
	assert.Error(t, err)
	_, err = DecodeCSC([]byte{0x03, 0x01})
	assert.Error(t, err)
	_, err = DecodeRSC([]byte{0x00})
	assert.Error(t, err)
	_, err = DecodeHeartRate([]byte{0x01, 0x2C})
	assert.Error(t, err)

	m, err := DecodeHeartRate([]byte{0x01, 0x2C, 0x01})
	require.NoError(t, err)
	assert.Equal(t, uint16(300), m.HeartRate)

	_, err = DecodeMeasurement(ID(9), []byte{0})
	assert.ErrorIs(t, err, &NotFoundError{Resource: "profile"})
}
