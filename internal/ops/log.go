// Package ops provides invocation-scoped structured logging, grounded on
// the teacher's go/ops package: a narrow Publisher interface plus a
// Log helper that builds a structured record from key/value field
// pairs, level-filtered, panicking on malformed field lists because those
// are a developer error rather than a runtime condition.
//
// Unlike the teacher, whose ops.Log is itself written into a journaled
// collection, here the publisher's default implementation is a thin
// adapter onto github.com/sirupsen/logrus — the invocation core does not
// own log persistence (the supervisor does, per spec.md §1).
package ops

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Level mirrors the handful of severities the invocation core ever emits.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Publisher receives structured invocation log records.
type Publisher interface {
	PublishLog(level Level, message string, fields map[string]interface{})
	MinLevel() Level
}

// LogrusPublisher adapts Publisher onto a logrus.FieldLogger, tagged with
// a fixed set of invocation-identity fields (invocation id, debug id, key).
type LogrusPublisher struct {
	Logger logrus.FieldLogger
	Min    Level
	Fields logrus.Fields
}

func (p *LogrusPublisher) MinLevel() Level { return p.Min }

func (p *LogrusPublisher) PublishLog(level Level, message string, fields map[string]interface{}) {
	var entry = p.Logger.WithFields(p.Fields)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	switch level {
	case LevelDebug:
		entry.Debug(message)
	case LevelInfo:
		entry.Info(message)
	case LevelWarn:
		entry.Warn(message)
	case LevelError:
		entry.Error(message)
	}
}

// Log constructs and publishes a record using the given Publisher. fields
// must be pairs of a string key followed by a value; Log panics on an odd
// length or a non-string key, matching the teacher's ops.PublishLog, since
// such a mismatch is always a call-site programming error, not user input.
func Log(p Publisher, level Level, message string, fields ...interface{}) {
	if p.MinLevel() > level {
		return
	}
	if len(fields)%2 != 0 {
		panic(fmt.Sprintf("ops: fields must be of even length: %#v", fields))
	}

	var m = make(map[string]interface{}, len(fields)/2)
	for i := 0; i != len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			panic(fmt.Sprintf("ops: field key must be a string, got %#v", fields[i]))
		}
		var value = fields[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		m[key] = value
	}
	p.PublishLog(level, message, m)
}
