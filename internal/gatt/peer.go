package gatt

import "github.com/go-ble/ble"

// Peer is a connected central as seen by the core.
type Peer interface {
	// ID is the stable identity of the central for the lifetime of its connection.
	ID() string
	// Notify pushes a measurement value; it must not block for long.
	Notify(characteristic ble.UUID, data []byte) error
}
