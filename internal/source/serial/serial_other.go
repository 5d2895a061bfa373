//go:build !linux && !darwin

package serial

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

const DefaultBufferSize = 4096

var ErrUnsupported = errors.New("serial source requires a pseudo-terminal (linux or darwin)")

type Options struct {
	BufferSize int
	Link       string
	Echo       bool
	Logger     *logrus.Logger
}

type Stats struct {
	Lines   uint64
	Errors  uint64
	Dropped uint64
}

type Source struct{}

func Open(Target, Options) (*Source, error) { return nil, ErrUnsupported }
func (s *Source) TTYName() string { return "" }
func (s *Source) Start(context.Context) error { return ErrUnsupported }
func (s *Source) HandleLine(string) {}
func (s *Source) Stats() Stats { return Stats{} }
func (s *Source) Close() error { return nil }
