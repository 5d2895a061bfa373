package profile

import (
	"strings"

	"github.com/go-ble/ble"
)

// sigBaseSuffix is the Bluetooth SIG base UUID tail, 0000xxxx-0000-1000-8000-00805f9b34fb.
const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string into its lookup key: lowercase, no dashes, no 0x
// prefix. Full 128-bit UUIDs built on the SIG base collapse to their 16-bit short form.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, sigBaseSuffix) {
		return s[4:8]
	}
	return s
}

// Key returns the normalized lookup key of a go-ble UUID.
func Key(u ble.UUID) string {
	if len(u) == 0 {
		return ""
	}
	return NormalizeUUID(u.String())
}

// SameUUID reports whether two UUIDs name the same attribute, regardless of the
// 16-bit or 128-bit form they were written in.
func SameUUID(a, b ble.UUID) bool {
	if a.Equal(b) {
		return true
	}
	return Key(a) != "" && Key(a) == Key(b)
}
