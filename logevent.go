package ldbc

import (
	"time"

	"github.com/takapi327/ldbc-sub016/internal/logging"
)

// LogEventKind tags which of the three shapes a LogEvent carries, per
// spec.md §6's consumed LogHandler.run(event) interface.
type LogEventKind int

const (
	// LogSuccess reports a statement that completed without error.
	LogSuccess LogEventKind = iota
	// LogExecFailure reports a statement that failed after being sent to
	// the server (ServerError, or a transport failure mid-exchange).
	LogExecFailure
	// LogProcessingFailure reports an error decoding a received row or
	// packet, distinct from a server-side failure.
	LogProcessingFailure
)

func (k LogEventKind) String() string {
	switch k {
	case LogSuccess:
		return "Success"
	case LogExecFailure:
		return "ExecFailure"
	case LogProcessingFailure:
		return "ProcessingFailure"
	default:
		return "Unknown"
	}
}

// LogEvent is the single shape statement completions and failures are
// reported through. Connection emits one LogSuccess or LogExecFailure per
// executed statement; errors that ResultSet.Next returns while reading or
// decoding rows are not reported as LogProcessingFailure events.
type LogEvent struct {
	Kind         LogEventKind
	SQL          string
	ConnectionID uint32
	Duration     time.Duration
	Err          error
}

// LogHandler receives every LogEvent a Connection produces, in addition
// to the structured logrus entry internal/logging always emits.
type LogHandler interface {
	Run(event LogEvent)
}

// LogHandlerFunc adapts a plain function to LogHandler.
type LogHandlerFunc func(event LogEvent)

func (f LogHandlerFunc) Run(event LogEvent) { f(event) }

// emitLogEvent forwards event to handler (if non-nil) and renders it as a
// structured logrus entry, per SPEC_FULL.md's ambient logging section.
func emitLogEvent(log logging.Logger, handler LogHandler, event LogEvent) {
	fields := logging.Fields{
		"kind":          event.Kind.String(),
		"connection_id": event.ConnectionID,
		"duration_ms":   event.Duration.Milliseconds(),
	}
	entry := log.WithFields(fields)
	switch event.Kind {
	case LogSuccess:
		entry.Debugf("statement completed: %s", event.SQL)
	case LogExecFailure:
		entry.Warnf("statement failed: %s: %v", event.SQL, event.Err)
	case LogProcessingFailure:
		entry.Errorf("row decode failed for statement %s: %v", event.SQL, event.Err)
	}
	if handler != nil {
		handler.Run(event)
	}
}
