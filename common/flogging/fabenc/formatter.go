/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabenc renders log entries from a go-logging style format string
// such as the one in CORE_CHAINCODE_LOGGING_FORMAT.
package fabenc

import (
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap/zapcore"
)

const defaultTimeLayout = "2006-01-02T15:04:05.999Z07:00"

// formatRegexp captures the verb and the optional directive after a colon.
var formatRegexp = regexp.MustCompile(`%{(color|id|level|message|module|shortfunc|time)(?::(.*?))?}`)

// ParseFormat turns a format specification into formatters. The supported
// verbs are:
//
//   - %{color} the SGR color of the level; %{color:bold} and %{color:reset}
//   - %{id} a process wide sequence number
//   - %{level} the entry level
//   - %{message} the entry message
//   - %{module} the logger name
//   - %{shortfunc} the calling function
//   - %{time} the entry time; the directive is a time layout
//
// For the other verbs the directive is an fmt verb without the leading
// percent. Text outside verbs is written as is.
func ParseFormat(spec string) ([]Formatter, error) {
	cursor := 0
	formatters := []Formatter{}

	for _, m := range formatRegexp.FindAllStringSubmatchIndex(spec, -1) {
		start, end := m[0], m[1]
		verbStart, verbEnd := m[2], m[3]
		formatStart, formatEnd := m[4], m[5]

		if start > cursor {
			formatters = append(formatters, StringFormatter{Value: spec[cursor:start]})
		}

		var format string
		if formatStart >= 0 {
			format = spec[formatStart:formatEnd]
		}

		formatter, err := NewFormatter(spec[verbStart:verbEnd], format)
		if err != nil {
			return nil, err
		}

		formatters = append(formatters, formatter)
		cursor = end
	}

	if cursor != len(spec) {
		formatters = append(formatters, StringFormatter{Value: spec[cursor:]})
	}

	return formatters, nil
}

// MultiFormatter presents a replaceable list of formatters as one.
type MultiFormatter struct {
	mutex      sync.RWMutex
	formatters []Formatter
}

func NewMultiFormatter(formatters ...Formatter) *MultiFormatter {
	return &MultiFormatter{formatters: formatters}
}

func (m *MultiFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	m.mutex.RLock()
	for i := range m.formatters {
		m.formatters[i].Format(w, entry, fields)
	}
	m.mutex.RUnlock()
}

// SetFormatters replaces the delegates.
func (m *MultiFormatter) SetFormatters(formatters []Formatter) {
	m.mutex.Lock()
	m.formatters = formatters
	m.mutex.Unlock()
}

// StringFormatter writes a fixed string.
type StringFormatter struct{ Value string }

func (s StringFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	io.WriteString(w, s.Value)
}

// NewFormatter creates the formatter for verb. An empty format selects the
// verb's default.
func NewFormatter(verb, format string) (Formatter, error) {
	switch verb {
	case "color":
		return newColorFormatter(format)
	case "id":
		return SequenceFormatter{FormatVerb: "%" + stringOrDefault(format, "d")}, nil
	case "level":
		return LevelFormatter{FormatVerb: "%" + stringOrDefault(format, "s")}, nil
	case "message":
		return MessageFormatter{FormatVerb: "%" + stringOrDefault(format, "s")}, nil
	case "module":
		return ModuleFormatter{FormatVerb: "%" + stringOrDefault(format, "s")}, nil
	case "shortfunc":
		return ShortFuncFormatter{FormatVerb: "%" + stringOrDefault(format, "s")}, nil
	case "time":
		return TimeFormatter{Layout: stringOrDefault(format, defaultTimeLayout)}, nil
	default:
		return nil, fmt.Errorf("unknown verb: %s", verb)
	}
}

// ColorFormatter writes the SGR sequence for the entry level.
type ColorFormatter struct {
	Bold  bool
	Reset bool
}

func newColorFormatter(f string) (ColorFormatter, error) {
	switch f {
	case "bold":
		return ColorFormatter{Bold: true}, nil
	case "reset":
		return ColorFormatter{Reset: true}, nil
	case "":
		return ColorFormatter{}, nil
	default:
		return ColorFormatter{}, fmt.Errorf("invalid color option: %s", f)
	}
}

func (c ColorFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	switch {
	case c.Reset:
		io.WriteString(w, ResetColor())
	case c.Bold:
		io.WriteString(w, LevelColor(entry.Level).Bold())
	default:
		io.WriteString(w, LevelColor(entry.Level).Normal())
	}
}

type LevelFormatter struct{ FormatVerb string }

func (l LevelFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	fmt.Fprintf(w, l.FormatVerb, entry.Level.CapitalString())
}

type MessageFormatter struct{ FormatVerb string }

func (m MessageFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	fmt.Fprintf(w, m.FormatVerb, strings.TrimRight(entry.Message, "\n"))
}

type ModuleFormatter struct{ FormatVerb string }

func (m ModuleFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	fmt.Fprintf(w, m.FormatVerb, entry.LoggerName)
}

var sequence uint64

// SetSequence sets the last number written by %{id}.
func SetSequence(s uint64) { atomic.StoreUint64(&sequence, s) }

// SequenceFormatter writes the next process wide sequence number.
type SequenceFormatter struct{ FormatVerb string }

func (s SequenceFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	fmt.Fprintf(w, s.FormatVerb, atomic.AddUint64(&sequence, 1))
}

// ShortFuncFormatter writes the name of the function that logged the entry
// without its package.
type ShortFuncFormatter struct{ FormatVerb string }

func (s ShortFuncFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	f := runtime.FuncForPC(entry.Caller.PC)
	if f == nil {
		fmt.Fprintf(w, s.FormatVerb, "(unknown)")
		return
	}

	fname := f.Name()
	fmt.Fprintf(w, s.FormatVerb, fname[strings.LastIndex(fname, ".")+1:])
}

type TimeFormatter struct{ Layout string }

func (t TimeFormatter) Format(w io.Writer, entry zapcore.Entry, fields []zapcore.Field) {
	io.WriteString(w, entry.Time.Format(t.Layout))
}

func stringOrDefault(str, dflt string) string {
	if str != "" {
		return str
	}
	return dflt
}
