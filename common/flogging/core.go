/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"go.uber.org/zap/zapcore"
)

type Encoding int8

const (
	CONSOLE = iota
	JSON
)

// EncodingSelector decides whether entries are written as JSON or in the
// human readable console format.
type EncodingSelector interface {
	Encoding() Encoding
}

// Core is a zapcore.Core that carries one encoder per supported encoding and
// consults the Logging instance for the active encoding, the output and the
// per-logger level on every entry. Keeping every encoder in step lets the
// format change at runtime without rebuilding loggers.
type Core struct {
	zapcore.LevelEnabler
	Levels   *LoggerLevels
	Encoders map[Encoding]zapcore.Encoder
	Selector EncodingSelector
	Output   zapcore.WriteSyncer
	Observer Observer
}

// Observer is notified of every entry checked and every entry written.
type Observer interface {
	Check(e zapcore.Entry, ce *zapcore.CheckedEntry)
	WriteEntry(e zapcore.Entry, fields []zapcore.Field)
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clones := make(map[Encoding]zapcore.Encoder, len(c.Encoders))
	for encoding, enc := range c.Encoders {
		clone := enc.Clone()
		for i := range fields {
			fields[i].AddTo(clone)
		}
		clones[encoding] = clone
	}

	return &Core{
		LevelEnabler: c.LevelEnabler,
		Levels:       c.Levels,
		Encoders:     clones,
		Selector:     c.Selector,
		Output:       c.Output,
		Observer:     c.Observer,
	}
}

func (c *Core) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Observer != nil {
		c.Observer.Check(e, ce)
	}
	if c.Enabled(e.Level) && c.Levels.Level(e.LoggerName).Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *Core) Write(e zapcore.Entry, fields []zapcore.Field) error {
	enc, ok := c.Encoders[c.Selector.Encoding()]
	if !ok {
		enc = c.Encoders[CONSOLE]
	}

	buf, err := enc.EncodeEntry(e, fields)
	if err != nil {
		return err
	}
	_, err = c.Output.Write(buf.Bytes())
	buf.Free()
	if err != nil {
		return err
	}

	if c.Observer != nil {
		c.Observer.WriteEntry(e, fields)
	}

	if e.Level >= zapcore.PanicLevel {
		c.Sync()
	}
	return nil
}

func (c *Core) Sync() error {
	return c.Output.Sync()
}
