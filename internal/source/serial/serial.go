//go:build linux || darwin

// Package serial exposes a pseudo-terminal that accepts sensor values as text lines,
// so a microcontroller bridge, a replay tool or a person with a terminal can feed
// the hub.
package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/srg/cscbridge/internal/groutine"
)

const (
	DefaultBufferSize = 4096
	pollTimeoutMs     = 50
	maxLineLength     = 256
)

// Options configures a Source.
type Options struct {
	BufferSize int
	// Link, when set, is replaced by a symlink to the PTY slave.
	Link string
	// Echo writes "OK" or "ERR <reason>" back for every command line.
	Echo   bool
	Logger *logrus.Logger
}

// Stats are the counters of a Source.
type Stats struct {
	Lines   uint64
	Errors  uint64
	Dropped uint64
}

// Source reads the line protocol from a PTY master.
type Source struct {
	target Target
	opts   Options
	logger *logrus.Logger

	master  *os.File
	slave   *os.File
	ttyName string

	buf    *ringbuffer.RingBuffer
	notify chan struct{}
	start  time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
	pending []byte

	lines   atomic.Uint64
	errs    atomic.Uint64
	dropped atomic.Uint64
}

// Open creates the PTY pair in raw mode.
func Open(target Target, opts Options) (*Source, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("set pty raw mode: %w", err)
	}

	s := &Source{
		target:  target,
		opts:    opts,
		logger:  opts.Logger,
		master:  master,
		slave:   slave,
		ttyName: slave.Name(),
		buf:     ringbuffer.New(opts.BufferSize),
		notify:  make(chan struct{}, 1),
		start:   time.Now(),
	}

	if opts.Link != "" {
		if err := s.link(opts.Link); err != nil {
			_ = master.Close()
			_ = slave.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Source) link(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace link %s: %w", path, err)
	}
	if err := os.Symlink(s.ttyName, path); err != nil {
		return fmt.Errorf("link %s -> %s: %w", path, s.ttyName, err)
	}
	return nil
}

// TTYName returns the slave device path that writers should open.
func (s *Source) TTYName() string {
	return s.ttyName
}

// Start launches the read and parse loops.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("serial source closed")
	}
	if s.cancel != nil {
		return fmt.Errorf("serial source already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	groutine.Go(ctx, "serial-read-loop", func(ctx context.Context) {
		defer s.wg.Done()
		s.readLoop(ctx)
	})
	groutine.Go(ctx, "serial-parse-loop", func(ctx context.Context) {
		defer s.wg.Done()
		s.parseLoop(ctx)
	})

	s.logger.WithField("tty", s.ttyName).Info("Serial source listening")
	return nil
}

func (s *Source) readLoop(ctx context.Context) {
	log := s.logger.WithField("goroutine", groutine.Name(ctx))
	fds := []unix.PollFd{{Fd: int32(s.master.Fd()), Events: unix.POLLIN}}
	chunk := make([]byte, 1024)

	for ctx.Err() == nil {
		ready, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil && !errors.Is(err, syscall.EINTR) {
			log.WithError(err).Warn("Serial poll failed")
			continue
		}
		if ready == 0 {
			continue
		}

		n, err := s.master.Read(chunk)
		if n > 0 {
			written, werr := s.buf.Write(chunk[:n])
			if werr != nil && !errors.Is(werr, ringbuffer.ErrIsFull) {
				log.WithError(werr).Warn("Serial buffer write failed")
			}
			if written < n {
				s.dropped.Add(uint64(n - written))
			}
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Debug("Serial read failed")
			}
			return
		}
	}
}

func (s *Source) parseLoop(ctx context.Context) {
	tmp := make([]byte, 512)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		}

		for {
			n, err := s.buf.TryRead(tmp)
			if n == 0 || errors.Is(err, ringbuffer.ErrIsEmpty) {
				break
			}
			s.feed(tmp[:n])
		}
	}
}

// feed appends raw bytes and handles every complete line.
func (s *Source) feed(data []byte) {
	s.pending = append(s.pending, data...)
	for {
		i := bytes.IndexAny(s.pending, "\r\n")
		if i < 0 {
			break
		}
		line := string(s.pending[:i])
		s.pending = s.pending[i+1:]
		s.HandleLine(line)
	}
	if len(s.pending) > maxLineLength {
		s.logger.WithField("bytes", len(s.pending)).Warn("Discarding overlong serial line")
		s.errs.Add(1)
		s.pending = s.pending[:0]
	}
}

// HandleLine parses one protocol line and applies it to the target.
func (s *Source) HandleLine(line string) {
	cmd, err := ParseLine(line, time.Since(s.start).Milliseconds())
	if err != nil {
		s.errs.Add(1)
		s.logger.WithField("line", line).WithError(err).Warn("Invalid serial command")
		s.reply("ERR " + err.Error())
		return
	}
	if cmd == nil {
		return
	}
	s.lines.Add(1)
	cmd.Apply(s.target)
	s.reply("OK")
}

func (s *Source) reply(msg string) {
	if !s.opts.Echo {
		return
	}
	if _, err := s.master.Write([]byte(msg + "\n")); err != nil {
		s.logger.WithError(err).Debug("Serial reply failed")
	}
}

func (s *Source) Stats() Stats {
	return Stats{Lines: s.lines.Load(), Errors: s.errs.Load(), Dropped: s.dropped.Load()}
}

// Close stops the loops, closes the PTY pair and removes the link.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
	}

	errs := []error{s.master.Close(), s.slave.Close()}
	if s.opts.Link != "" {
		if err := os.Remove(s.opts.Link); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
