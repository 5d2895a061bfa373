// Package goble is the go-ble peripheral side of the bridge: it turns profile
// definitions into GATT services and translates go-ble callbacks into Handler calls.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/gatt"
	"github.com/srg/cscbridge/internal/groutine"
	"github.com/srg/cscbridge/internal/profile"
)

// DeviceFactory creates the local BLE device (can be overridden in tests).
var DeviceFactory = newDevice

// Transport implements gatt.Transport on a go-ble device.
type Transport struct {
	dev    ble.Device
	logger *logrus.Logger

	mu       sync.Mutex
	peers    map[string]*connPeer
	services []ble.UUID
	cancel   context.CancelFunc
	advDone  <-chan struct{}
	closed   bool
}

// New opens the local device.
func New(logger *logrus.Logger) (*Transport, error) {
	if logger == nil {
		logger = logrus.New()
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("open BLE device: %w", err)
	}
	return &Transport{
		dev:    dev,
		logger: logger,
		peers:  make(map[string]*connPeer),
	}, nil
}

// Register adds the service of def; the outcome is reported through ack from a
// separate goroutine.
func (t *Transport) Register(def *profile.Definition, h gatt.Handler, ack func(error)) {
	svc := t.buildService(def, h)

	groutine.Go(context.Background(), "goble-add-service", func(context.Context) {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			ack(errors.New("transport closed"))
			return
		}

		err := t.dev.AddService(svc)
		if err == nil {
			t.mu.Lock()
			t.services = append(t.services, def.Service)
			t.mu.Unlock()
		}
		ack(err)
	})
}

func (t *Transport) buildService(def *profile.Definition, h gatt.Handler) *ble.Service {
	svc := ble.NewService(def.Service)

	for _, c := range def.Characteristics() {
		uuid := c.UUID
		ch := svc.NewCharacteristic(uuid)
		// notify-only characteristics get no read handler, so go-ble answers reads
		// with "read not permitted", matching Dispatcher.ReadCharacteristic
		if c.Properties()&ble.CharNotify != 0 {
			ch.HandleNotify(ble.NotifyHandlerFunc(func(req ble.Request, n ble.Notifier) {
				t.serveNotify(uuid, h, req, n)
			}))
		}
		if c.Properties()&ble.CharRead != 0 {
			ch.HandleRead(ble.ReadHandlerFunc(func(req ble.Request, rsp ble.ResponseWriter) {
				writeResponse(rsp, h.ReadCharacteristic(requestPeer(peerID(req)), uuid))
			}))
		}
	}
	return svc
}

// serveNotify runs for as long as the central keeps notifications of characteristic
// enabled. The first notifier of a central subscribes it; when the last one ends the
// central is unsubscribed, or disconnected if the link went down.
func (t *Transport) serveNotify(characteristic ble.UUID, h gatt.Handler, req ble.Request, n ble.Notifier) {
	conn := req.Conn()
	id := peerID(req)

	t.mu.Lock()
	p, ok := t.peers[id]
	if !ok {
		p = newConnPeer(id)
		t.peers[id] = p
	}
	t.mu.Unlock()

	if p.attach(characteristic, n) {
		h.WriteDescriptor(p, profile.ClientConfigUUID, profile.CCCDEnable, false)
	}
	t.logger.WithFields(logrus.Fields{
		"peer":           id,
		"characteristic": profile.Key(characteristic),
	}).Debug("Notifications enabled")

	<-n.Context().Done()

	if !p.detach(characteristic) {
		return
	}
	t.mu.Lock()
	delete(t.peers, id)
	t.mu.Unlock()

	select {
	case <-conn.Disconnected():
		h.Disconnect(p)
	default:
		h.WriteDescriptor(p, profile.ClientConfigUUID, profile.CCCDDisable, false)
	}
}

// Advertise starts advertising name and the registered service UUIDs until Close.
func (t *Transport) Advertise(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New("transport closed")
	}
	if t.cancel != nil {
		return errors.New("already advertising")
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	uuids := append([]ble.UUID(nil), t.services...)

	t.advDone = groutine.GoDone(ctx, "goble-advertise", func(ctx context.Context) {
		err := t.dev.AdvertiseNameAndServices(ctx, name, uuids...)
		if err != nil && !errors.Is(err, context.Canceled) {
			t.logger.WithError(err).Error("Advertising stopped")
		}
	})

	t.logger.WithFields(logrus.Fields{
		"name":     name,
		"services": len(uuids),
	}).Info("Advertising")
	return nil
}

// Close stops advertising, removes the services and stops the device.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cancel, done := t.cancel, t.advDone
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return errors.Join(t.dev.RemoveAllServices(), t.dev.Stop())
}

func writeResponse(rsp ble.ResponseWriter, r gatt.Response) {
	rsp.SetStatus(r.Status.ATT())
	if len(r.Value) > 0 {
		if _, err := rsp.Write(r.Value); err != nil {
			rsp.SetStatus(ble.ErrUnlikely)
		}
	}
}

func peerID(req ble.Request) string {
	if c := req.Conn(); c != nil && c.RemoteAddr() != nil {
		return c.RemoteAddr().String()
	}
	return "unknown"
}
