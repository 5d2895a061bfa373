// Package script drives the sensor hub from a Lua simulation. The script defines
// tick(t_ms) and reports values through Go functions registered as globals.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"

	cscbridge "github.com/srg/cscbridge"
	"github.com/srg/cscbridge/internal/groutine"
	"github.com/srg/cscbridge/internal/sensor"
)

// DefaultInterval is the tick period used when Options.Interval is zero.
const DefaultInterval = 250 * time.Millisecond

// Target receives the simulated sensor data.
type Target interface {
	Apply(u sensor.Update)
	SetState(kind sensor.Kind, state string)
}

// Options configures a Source.
type Options struct {
	// Code is the Lua source; empty selects the built-in ride.
	Code string
	// Name labels the chunk in Lua error messages.
	Name     string
	Interval time.Duration
	Logger   *logrus.Logger
}

// Error is a Lua load or runtime failure.
type Error struct {
	Phase   string // "load" or "tick"
	Source  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lua %s error in %s: %s", e.Phase, e.Source, e.Message)
}

// ErrClosed is returned by Tick after Close.
var ErrClosed = errors.New("script source closed")

// Source owns a Lua state. All access to the state is serialized.
type Source struct {
	target Target
	opts   Options
	logger *logrus.Logger

	mu     sync.Mutex
	state  *lua.State
	now    int64 // timestamp of the tick in progress, ms
	cancel context.CancelFunc
	done   <-chan struct{}
}

// LoadFile reads a script from disk into Options.Code.
func LoadFile(path string, opts Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("reading script: %w", err)
	}
	opts.Code = string(data)
	if opts.Name == "" {
		opts.Name = path
	}
	return opts, nil
}

// New creates the Lua state, registers the sensor functions and runs the script body.
// The script must define a global tick function.
func New(target Target, opts Options) (*Source, error) {
	if opts.Code == "" {
		opts.Code = cscbridge.DefaultRideScript
		if opts.Name == "" {
			opts.Name = "ride.lua"
		}
	}
	if opts.Name == "" {
		opts.Name = "script"
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	s := &Source{
		target: target,
		opts:   opts,
		logger: opts.Logger,
		state:  lua.NewState(),
	}
	s.state.OpenLibs()
	s.registerAPI()

	if err := s.load(); err != nil {
		s.state.Close()
		s.state = nil
		return nil, err
	}
	return s, nil
}

func (s *Source) load() error {
	L := s.state
	if rc := L.LoadString(s.opts.Code); rc != 0 {
		return s.popError("load")
	}
	if err := L.Call(0, 0); err != nil {
		return &Error{Phase: "load", Source: s.opts.Name, Message: err.Error()}
	}

	L.GetGlobal("tick")
	defer L.Pop(1)
	if !L.IsFunction(-1) {
		return &Error{Phase: "load", Source: s.opts.Name, Message: "script does not define tick(t_ms)"}
	}
	return nil
}

// Tick calls tick(t_ms) in the script; values reported during the call are stamped t_ms.
func (s *Source) Tick(tMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrClosed
	}

	L := s.state
	s.now = tMs
	L.GetGlobal("tick")
	L.PushInteger(tMs)
	if err := L.Call(1, 0); err != nil {
		return &Error{Phase: "tick", Source: s.opts.Name, Message: err.Error()}
	}
	return nil
}

// Start calls Tick every interval until ctx ends or Close is called. Tick errors are
// logged and do not stop the loop.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return ErrClosed
	}
	if s.cancel != nil {
		return fmt.Errorf("script source already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	started := time.Now()

	s.done = groutine.GoDone(ctx, "source-script", func(ctx context.Context) {
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := s.Tick(now.Sub(started).Milliseconds()); err != nil {
					if errors.Is(err, ErrClosed) {
						return
					}
					s.logger.WithError(err).WithField("goroutine", groutine.Name(ctx)).Warn("Script tick failed")
				}
			}
		}
	})

	s.logger.WithFields(logrus.Fields{
		"script":   s.opts.Name,
		"interval": s.opts.Interval,
	}).Info("Script source started")
	return nil
}

// Close stops the ticker and releases the Lua state.
func (s *Source) Close() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
	return nil
}

func (s *Source) popError(phase string) error {
	msg := "unknown Lua error"
	if s.state.GetTop() > 0 && s.state.IsString(-1) {
		msg = s.state.ToString(-1)
	}
	s.state.Pop(1)
	return &Error{Phase: phase, Source: s.opts.Name, Message: msg}
}
