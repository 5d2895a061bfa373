// Package bridge wires the sensor hub, the GATT core and the upstream sources into a
// single service with an ordered lifecycle.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/config"
	"github.com/srg/cscbridge/internal/events"
	"github.com/srg/cscbridge/internal/gatt"
	"github.com/srg/cscbridge/internal/profile"
	"github.com/srg/cscbridge/internal/sensor"
)

// Source is an upstream sensor input.
type Source interface {
	Start(ctx context.Context) error
	Close() error
}

// SourceFactory builds a source that writes into hub.
type SourceFactory func(hub *sensor.Hub) (Source, error)

// Advertiser is implemented by transports that advertise the published services.
type Advertiser interface {
	Advertise(ctx context.Context, name string) error
}

// Options configures a Service.
type Options struct {
	Config    *config.Config
	Transport gatt.Transport
	Sources   []SourceFactory
	// Sink receives every display event after it was journaled.
	Sink   func(events.Event)
	Logger *logrus.Logger
}

// Service owns every bridge component.
type Service struct {
	cfg    *config.Config
	logger *logrus.Logger

	bus        *events.Bus
	journal    *events.Journal
	hub        *sensor.Hub
	table      *profile.Table
	features   *profile.Registry
	registry   *gatt.Registry
	dispatcher *gatt.Dispatcher
	server     *gatt.Server
	notifier   *gatt.Notifier
	transport  gatt.Transport
	sources    []Source

	mu         sync.Mutex
	started    bool
	stopped    bool
	stopErr    error
	publishErr error
}

// New builds the service. Nothing runs until Start.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Transport == nil {
		return nil, errors.New("transport is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	s := &Service{
		cfg:       cfg,
		logger:    logger,
		bus:       events.NewBus(cfg.Events.BusCapacity),
		table:     profile.DefaultTable(),
		features:  profile.NewRegistry(),
		registry:  gatt.NewRegistry(),
		transport: opts.Transport,
	}

	journal, err := events.NewJournal(s.bus.C(), cfg.Events.JournalSize, opts.Sink)
	if err != nil {
		return nil, err
	}
	s.journal = journal

	s.hub = sensor.NewHub(sensor.HubOptions{Observer: s.bus, Logger: logger})
	s.dispatcher = gatt.NewDispatcher(s.table, s.features, s.registry, s.bus, logger)
	s.server = gatt.NewServer(gatt.ServerOptions{
		AckTimeout: cfg.Publish.AckTimeout,
		Retries:    cfg.Publish.Retries,
		RetryDelay: cfg.Publish.RetryDelay,
		SkipIdle:   cfg.Notify.SkipIdle,
	}, s.table, s.features, s.transport, s.dispatcher, s.hub, s.bus, logger)
	s.notifier = gatt.NewNotifier(gatt.NotifierOptions{
		Interval: cfg.Notify.Interval,
		Snapshot: s.hub,
		Registry: s.registry,
		Profiles: s.server,
		Logger:   logger,
	})

	for _, factory := range opts.Sources {
		src, err := factory(s.hub)
		if err != nil {
			s.closeSources()
			return nil, fmt.Errorf("creating source: %w", err)
		}
		s.sources = append(s.sources, src)
	}
	return s, nil
}

// Start configures feature masks, publishes the profiles one at a time, starts
// advertising and the notifier, and finally the sources. A profile that fails to
// publish is left unavailable; only cancellation of ctx aborts Start.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return gatt.ErrServerStopped
	}
	if s.started {
		return errors.New("bridge already started")
	}
	s.started = true

	if err := s.journal.Start(); err != nil {
		return err
	}

	mask, err := s.cfg.CSCMask()
	if err != nil {
		return err
	}
	if err := s.features.Configure(profile.CyclingSpeedCadence, mask); err != nil {
		return fmt.Errorf("configure CSC features: %w", err)
	}

	ids, err := s.cfg.ProfileIDs()
	if err != nil {
		return err
	}
	if err := s.server.Publish(ctx, ids...); err != nil {
		if ctx.Err() != nil || errors.Is(err, gatt.ErrServerStopped) {
			return err
		}
		s.publishErr = err
		s.logger.WithError(err).Warn("Some profiles are unavailable")
	}

	if adv, ok := s.transport.(Advertiser); ok && s.cfg.Device.Advertise {
		if err := adv.Advertise(ctx, s.cfg.Device.Name); err != nil {
			return fmt.Errorf("advertise: %w", err)
		}
	}

	s.notifier.Start(ctx)

	for _, src := range s.sources {
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("starting source: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"name":     s.cfg.Device.Name,
		"profiles": len(s.server.ActiveProfiles()),
		"sources":  len(s.sources),
	}).Info("Bridge started")
	return nil
}

// Stop tears the service down: the notifier first, so no tick can run against a
// half-closed server, then the sources, the subscribers and the transport. Calling Stop
// again returns the first result.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.stopErr
	}
	s.stopped = true

	s.notifier.Stop()
	errs := []error{s.closeSources()}
	s.registry.Clear()
	if err := s.server.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}

	s.bus.Close()
	if s.started {
		s.journal.Wait()
	}

	s.stopErr = errors.Join(errs...)
	s.logger.Info("Bridge stopped")
	return s.stopErr
}

func (s *Service) closeSources() error {
	var errs []error
	for _, src := range s.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Hub returns the sensor hub sources write to.
func (s *Service) Hub() *sensor.Hub {
	return s.hub
}

// Registry returns the subscriber registry.
func (s *Service) Registry() *gatt.Registry {
	return s.registry
}

// Notifier returns the periodic notifier.
func (s *Service) Notifier() *gatt.Notifier {
	return s.notifier
}

// Journal returns the display event journal.
func (s *Service) Journal() *events.Journal {
	return s.journal
}
