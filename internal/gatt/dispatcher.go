package gatt

import (
	"bytes"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/profile"
)

// Response is the answer to a single attribute request.
type Response struct {
	Status Status
	Value  []byte
	// Sent is false when the request did not ask for a response.
	Sent bool
}

// Handler answers attribute requests coming from a transport.
type Handler interface {
	ReadCharacteristic(peer Peer, uuid ble.UUID) Response
	ReadDescriptor(peer Peer, uuid ble.UUID) Response
	WriteDescriptor(peer Peer, uuid ble.UUID, value []byte, responseNeeded bool) Response
	Disconnect(peer Peer)
}

// SubscriptionObserver is told about subscriber changes.
type SubscriptionObserver interface {
	OnSubscriberChanged(peerID string, subscribed bool)
}

// Dispatcher implements Handler on top of the profile table, feature registry and
// subscriber registry. It never returns an error to the transport: every failure is
// answered with a status and logged.
type Dispatcher struct {
	table    *profile.Table
	features *profile.Registry
	registry *Registry
	observer SubscriptionObserver
	logger   *logrus.Logger
}

// NewDispatcher creates a dispatcher; observer may be nil.
func NewDispatcher(table *profile.Table, features *profile.Registry, registry *Registry, observer SubscriptionObserver, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		table:    table,
		features: features,
		registry: registry,
		observer: observer,
		logger:   logger,
	}
}

func (d *Dispatcher) ReadCharacteristic(peer Peer, uuid ble.UUID) Response {
	c, err := d.table.Lookup(uuid)
	if err != nil {
		d.fields(peer, uuid).WithError(err).Warn("Read of unknown characteristic")
		return Response{Status: StatusFailure, Sent: true}
	}

	if c.Role != profile.RoleFeature {
		d.fields(peer, uuid).WithField("profile", c.Profile.ID).Debug("Read of notify-only characteristic rejected")
		return Response{Status: StatusReadNotPermitted, Sent: true}
	}

	value := profile.EncodeFeature(d.features.MaskFor(c.Profile.ID))
	d.fields(peer, uuid).WithField("value", value).Debug("Feature read")
	return Response{Status: StatusSuccess, Value: value, Sent: true}
}

func (d *Dispatcher) ReadDescriptor(peer Peer, uuid ble.UUID) Response {
	if !profile.IsClientConfig(uuid) {
		d.fields(peer, uuid).Warn("Read of unknown descriptor")
		return Response{Status: StatusFailure, Sent: true}
	}

	value := profile.CCCDDisable
	if d.registry.IsSubscribed(peer.ID()) {
		value = profile.CCCDEnable
	}
	return Response{Status: StatusSuccess, Value: bytes.Clone(value), Sent: true}
}

func (d *Dispatcher) WriteDescriptor(peer Peer, uuid ble.UUID, value []byte, responseNeeded bool) Response {
	if !profile.IsClientConfig(uuid) {
		d.fields(peer, uuid).Warn("Write to unknown descriptor")
		return Response{Status: StatusFailure, Sent: responseNeeded}
	}

	switch {
	case bytes.Equal(value, profile.CCCDEnable):
		if d.registry.Subscribe(peer) {
			d.fields(peer, uuid).Info("Peer subscribed")
			d.notifyObserver(peer.ID(), true)
		}
	case bytes.Equal(value, profile.CCCDDisable):
		if d.registry.Unsubscribe(peer.ID()) {
			d.fields(peer, uuid).Info("Peer unsubscribed")
			d.notifyObserver(peer.ID(), false)
		}
	default:
		d.fields(peer, uuid).WithField("value", value).Debug("Ignoring unrecognized CCCD value")
	}

	return Response{Status: StatusSuccess, Sent: responseNeeded}
}

// Disconnect drops the peer's subscription.
func (d *Dispatcher) Disconnect(peer Peer) {
	if d.registry.Unsubscribe(peer.ID()) {
		d.logger.WithField("peer", peer.ID()).Info("Subscribed peer disconnected")
		d.notifyObserver(peer.ID(), false)
	}
}

func (d *Dispatcher) notifyObserver(peerID string, subscribed bool) {
	if d.observer != nil {
		d.observer.OnSubscriberChanged(peerID, subscribed)
	}
}

func (d *Dispatcher) fields(peer Peer, uuid ble.UUID) *logrus.Entry {
	return d.logger.WithFields(logrus.Fields{
		"peer": peer.ID(),
		"uuid": profile.Key(uuid),
	})
}
