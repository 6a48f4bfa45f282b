package systems

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/stridelabs/pulse/engine/core"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

/**
 * @brief Receives structured telemetry events from the resource manager.
 * The manager works against this contract only; passing a nil sink to
 * NewResourceManager falls back to NoopSink.
 */
type Sink interface {
	Event(severity Severity, message string, fields map[string]interface{})
}

type NoopSink struct{}

func (NoopSink) Event(Severity, string, map[string]interface{}) {}

/**
 * @brief The default sink: formats events onto the engine logger and
 * stamps every event with the owning manager's instance id.
 */
type LogSink struct {
	instance string
}

func NewLogSink() *LogSink {
	return &LogSink{instance: uuid.NewString()}
}

func (s *LogSink) Event(severity Severity, message string, fields map[string]interface{}) {
	line := message + s.formatFields(fields)
	switch severity {
	case SeverityDebug:
		core.LogDebug("%s", line)
	case SeverityInfo:
		core.LogInfo("%s", line)
	case SeverityWarn:
		core.LogWarn("%s", line)
	default:
		core.LogError("%s", line)
	}
}

func (s *LogSink) formatFields(fields map[string]interface{}) string {
	var sb strings.Builder
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	fmt.Fprintf(&sb, " instance=%s", s.instance)
	return sb.String()
}
