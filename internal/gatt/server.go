package gatt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/cscbridge/internal/profile"
	"github.com/srg/cscbridge/internal/sensor"
)

// Transport is the radio side of the GATT server.
type Transport interface {
	// Register installs the service for def and reports the outcome through ack,
	// possibly from another goroutine. ack must be called at most once.
	Register(def *profile.Definition, h Handler, ack func(error))
	Close() error
}

// Reporter tells whether a sensor channel has delivered any value.
type Reporter interface {
	Reported(kind sensor.Kind) bool
}

// PublishObserver is told about every publication outcome.
type PublishObserver interface {
	OnProfilePublished(id profile.ID, err error)
}

// ServerOptions configures a Server.
type ServerOptions struct {
	AckTimeout time.Duration `default:"5s"`
	Retries    int           `default:"0"`
	RetryDelay time.Duration `default:"500ms"`
	// SkipIdle suppresses notifications of profiles whose channels never reported.
	SkipIdle bool `default:"true"`
}

// Server owns profile publication and decides which profiles are notified.
type Server struct {
	opts      ServerOptions
	table     *profile.Table
	features  *profile.Registry
	transport Transport
	handler   Handler
	reporter  Reporter
	observer  PublishObserver
	logger    *logrus.Logger

	mu        sync.RWMutex
	published map[profile.ID]bool
	stopped   bool

	// publishMu serializes Publish calls; pending is owned by the holder.
	publishMu sync.Mutex
	pending   *pendingRegistration
}

// NewServer creates a server. reporter and observer may be nil.
func NewServer(opts ServerOptions, table *profile.Table, features *profile.Registry, transport Transport, handler Handler, reporter Reporter, observer PublishObserver, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		opts:      opts,
		table:     table,
		features:  features,
		transport: transport,
		handler:   handler,
		reporter:  reporter,
		observer:  observer,
		logger:    logger,
		published: make(map[profile.ID]bool),
	}
}

// pendingRegistration is a registration whose ack timed out. The transport may still be
// working on it, so nothing else is registered until it settles.
type pendingRegistration struct {
	id  profile.ID
	ack <-chan error
}

// Publish registers the given profiles one at a time, in table order, waiting for each
// acknowledgment before starting the next. A failed profile stays unavailable and does
// not stop the others; the returned error joins every failure.
func (s *Server) Publish(ctx context.Context, ids ...profile.ID) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	want := make(map[profile.ID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	failed := make(map[profile.ID]error)
	var order []profile.ID
	for _, def := range s.table.Definitions() {
		if !want[def.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.isStopped() {
			return ErrServerStopped
		}

		s.features.Seal(def.ID)
		err := s.publishOne(ctx, def)
		if isContextErr(err) {
			return err
		}

		if err != nil {
			s.logger.WithField("profile", def.ID).WithError(err).Error("Profile unavailable")
			s.notifyObserver(def.ID, err)
			failed[def.ID] = err
			order = append(order, def.ID)
			continue
		}
		if !s.Published(def.ID) {
			s.markPublished(def)
		}
	}

	// give a trailing timed-out registration its chance to complete
	if err := s.settle(ctx); isContextErr(err) {
		return err
	}

	var errs []error
	for _, id := range order {
		if !s.Published(id) {
			errs = append(errs, failed[id])
		}
	}
	return errors.Join(errs...)
}

func (s *Server) publishOne(ctx context.Context, def *profile.Definition) error {
	attempts := 1 + max(s.opts.Retries, 0)
	var err error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			s.logger.WithFields(logrus.Fields{
				"profile": def.ID,
				"attempt": i,
			}).WithError(err).Warn("Retrying profile registration")
			if werr := sleepCtx(ctx, s.opts.RetryDelay); werr != nil {
				return werr
			}
		}

		if err = s.settle(ctx); err != nil {
			if isContextErr(err) {
				return err
			}
			continue
		}
		// a late ack of the previous attempt may have completed this profile
		if s.Published(def.ID) {
			return nil
		}

		if err = s.register(ctx, def); err == nil {
			return nil
		}
		if isContextErr(err) {
			return err
		}
	}
	return &PublishError{Profile: def.ID.String(), Attempts: attempts, Err: err}
}

// register blocks until the transport acknowledges def, the timeout fires or ctx ends.
// On timeout the registration is kept pending.
func (s *Server) register(ctx context.Context, def *profile.Definition) error {
	ack := make(chan error, 1)
	s.transport.Register(def, s.handler, func(err error) {
		select {
		case ack <- err:
		default:
		}
	})

	timer := time.NewTimer(s.ackTimeout())
	defer timer.Stop()

	select {
	case err := <-ack:
		return err
	case <-timer.C:
		s.pending = &pendingRegistration{id: def.ID, ack: ack}
		return ErrAckTimeout
	case <-ctx.Done():
		s.pending = &pendingRegistration{id: def.ID, ack: ack}
		return ctx.Err()
	}
}

// settle waits, at most one ack timeout, for a pending registration to be acknowledged.
// A late success publishes its profile. ErrRegistrationPending means the transport is
// still busy and nothing new may be registered.
func (s *Server) settle(ctx context.Context) error {
	p := s.pending
	if p == nil {
		return nil
	}

	timer := time.NewTimer(s.ackTimeout())
	defer timer.Stop()

	select {
	case err := <-p.ack:
		s.pending = nil
		if err != nil {
			s.logger.WithField("profile", p.id).WithError(err).Warn("Late registration failed")
			return nil
		}
		if def, ok := s.table.Get(p.id); ok && !s.isStopped() {
			s.logger.WithField("profile", p.id).Info("Late registration acknowledged")
			s.markPublished(def)
		}
		return nil
	case <-timer.C:
		return ErrRegistrationPending
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) markPublished(def *profile.Definition) {
	s.mu.Lock()
	s.published[def.ID] = true
	s.mu.Unlock()
	s.notifyObserver(def.ID, nil)
	s.logger.WithFields(logrus.Fields{
		"profile": def.ID,
		"service": profile.Key(def.Service),
		"mask":    s.features.MaskFor(def.ID),
	}).Info("Profile published")
}

func (s *Server) notifyObserver(id profile.ID, err error) {
	if s.observer != nil {
		s.observer.OnProfilePublished(id, err)
	}
}

func (s *Server) ackTimeout() time.Duration {
	if s.opts.AckTimeout <= 0 {
		return 5 * time.Second
	}
	return s.opts.AckTimeout
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Published reports whether id was registered successfully.
func (s *Server) Published(id profile.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published[id]
}

// ActiveProfiles implements ProfileSource.
func (s *Server) ActiveProfiles() []ActiveProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return nil
	}

	var out []ActiveProfile
	for _, def := range s.table.Definitions() {
		if !s.published[def.ID] || !s.hasReported(def) {
			continue
		}
		out = append(out, ActiveProfile{Definition: def, Mask: s.features.MaskFor(def.ID)})
	}
	return out
}

func (s *Server) hasReported(def *profile.Definition) bool {
	if !s.opts.SkipIdle || s.reporter == nil {
		return true
	}
	for _, k := range def.Channels {
		if s.reporter.Reported(k) {
			return true
		}
	}
	return false
}

// Close marks every profile unavailable and closes the transport.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	clear(s.published)
	s.mu.Unlock()

	return s.transport.Close()
}

func (s *Server) isStopped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
