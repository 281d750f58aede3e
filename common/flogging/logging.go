/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hyperledger/fabric-chaincode-shim/common/flogging/fabenc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFormat is the console format used when none is configured.
const DefaultFormat = "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s} %{id:03x}%{color:reset} %{message}"

// Config holds the dependencies of a Logging instance.
type Config struct {
	// Format is either "json" or a console format specification as accepted
	// by fabenc.ParseFormat. "console" and the empty string select
	// DefaultFormat.
	Format string

	// LogSpec is the initial logging specification in the form accepted by
	// ActivateSpec. When empty, FABRIC_LOGGING_SPEC is consulted and then
	// the default level of INFO.
	LogSpec string

	// Writer receives the encoded entries. os.Stderr is used when nil.
	Writer io.Writer
}

// Logging maintains the state of the structured logging system: the active
// encoding, the output and the per-logger levels.
type Logging struct {
	*LoggerLevels

	mutex          sync.RWMutex
	encoding       Encoding
	encoderConfig  zapcore.EncoderConfig
	multiFormatter *fabenc.MultiFormatter
	writer         zapcore.WriteSyncer
	observer       Observer
}

// New creates a Logging instance configured by c.
func New(c Config) (*Logging, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.NameKey = "name"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	s := &Logging{
		LoggerLevels: &LoggerLevels{
			defaultLevel: defaultLevel,
		},
		encoderConfig:  encoderConfig,
		multiFormatter: fabenc.NewMultiFormatter(),
	}

	if err := s.Apply(c); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply applies c to the logging system.
func (s *Logging) Apply(c Config) error {
	if err := s.SetFormat(c.Format); err != nil {
		return err
	}

	if c.LogSpec == "" {
		c.LogSpec = os.Getenv("FABRIC_LOGGING_SPEC")
	}
	if c.LogSpec == "" {
		c.LogSpec = defaultLevel.String()
	}
	if err := s.LoggerLevels.ActivateSpec(c.LogSpec); err != nil {
		return err
	}

	if c.Writer == nil {
		c.Writer = os.Stderr
	}
	s.SetWriter(c.Writer)

	return nil
}

// SetFormat changes the encoding used for entries written after it returns.
func (s *Logging) SetFormat(format string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch format {
	case "json":
		s.encoding = JSON
		return nil
	case "", "console":
		format = DefaultFormat
	}

	formatters, err := fabenc.ParseFormat(format)
	if err != nil {
		return errors.WithMessagef(err, "invalid log format '%s'", format)
	}
	s.multiFormatter.SetFormatters(formatters)
	s.encoding = CONSOLE
	return nil
}

// SetWriter sets the sink for encoded entries. Writers other than *os.File
// must be safe for concurrent use.
func (s *Logging) SetWriter(w io.Writer) {
	var sw zapcore.WriteSyncer
	switch t := w.(type) {
	case *os.File:
		sw = zapcore.Lock(t)
	case zapcore.WriteSyncer:
		sw = t
	default:
		sw = zapcore.AddSync(w)
	}

	s.mutex.Lock()
	s.writer = sw
	s.mutex.Unlock()
}

// Write satisfies io.Writer by delegating to the configured writer.
func (s *Logging) Write(b []byte) (int, error) {
	s.mutex.RLock()
	w := s.writer
	s.mutex.RUnlock()

	return w.Write(b)
}

// Sync flushes the configured writer.
func (s *Logging) Sync() error {
	s.mutex.RLock()
	w := s.writer
	s.mutex.RUnlock()

	return w.Sync()
}

// Encoding satisfies EncodingSelector.
func (s *Logging) Encoding() Encoding {
	s.mutex.RLock()
	e := s.encoding
	s.mutex.RUnlock()
	return e
}

// SetObserver installs the observer notified of entries checked and
// written by every logger and returns the previous one.
func (s *Logging) SetObserver(observer Observer) Observer {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	prev := s.observer
	s.observer = observer
	return prev
}

// Check satisfies Observer by delegating to the installed observer.
func (s *Logging) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) {
	s.mutex.RLock()
	observer := s.observer
	s.mutex.RUnlock()

	if observer != nil {
		observer.Check(e, ce)
	}
}

// WriteEntry satisfies Observer by delegating to the installed observer.
func (s *Logging) WriteEntry(e zapcore.Entry, fields []zapcore.Field) {
	s.mutex.RLock()
	observer := s.observer
	s.mutex.RUnlock()

	if observer != nil {
		observer.WriteEntry(e, fields)
	}
}

// ZapLogger creates a zap.Logger with the given name. Levels are decided per
// entry by the core so named children follow their own level.
func (s *Logging) ZapLogger(name string) *zap.Logger {
	if !isValidLoggerName(name) {
		panic(fmt.Sprintf("invalid logger name: %s", name))
	}

	core := &Core{
		LevelEnabler: zap.LevelEnablerFunc(func(l zapcore.Level) bool { return true }),
		Levels:       s.LoggerLevels,
		Encoders: map[Encoding]zapcore.Encoder{
			JSON:    zapcore.NewJSONEncoder(s.encoderConfig),
			CONSOLE: fabenc.NewFormatEncoder(s.multiFormatter),
		},
		Selector: s,
		Output:   s,
		Observer: s,
	}

	return NewZapLogger(core).Named(name)
}

// Logger creates a FabricLogger with the given name.
func (s *Logging) Logger(name string) *FabricLogger {
	return NewFabricLogger(s.ZapLogger(name))
}
