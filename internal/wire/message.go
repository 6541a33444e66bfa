package wire

import (
	"fmt"
	"strings"
	"time"
)

// Message is anything the worker sends back to the controller.
// Use a type switch to determine the concrete type.
type Message interface {
	MessageType() string
}

// Compile-time verification that all message types implement Message.
var (
	_ Message = (*Ready)(nil)
	_ Message = (*Ack)(nil)
	_ Message = (*Exiting)(nil)
	_ Message = (*Log)(nil)
	_ Message = (*Data)(nil)
)

// Message type tags used on the wire.
const (
	TypeReady   = "ready"
	TypeAck     = "ack"
	TypeExiting = "exiting"
	TypeLog     = "log"
	TypeData    = "data"
)

// Ready is sent once by the worker when its loop starts.
type Ready struct{}

// MessageType implements Message.
func (*Ready) MessageType() string { return TypeReady }

// Ack confirms the worker received the instruction with ID and is about to
// execute it.
type Ack struct {
	ID CommandID `json:"id"`
}

// MessageType implements Message.
func (*Ack) MessageType() string { return TypeAck }

// Exiting is the last message a worker sends.
type Exiting struct{}

// MessageType implements Message.
func (*Exiting) MessageType() string { return TypeExiting }

// Log is a worker-side log record forwarded to the controller.
type Log struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
}

// MessageType implements Message.
func (*Log) MessageType() string { return TypeLog }

func (l *Log) String() string {
	return fmt.Sprintf("%s [%s] %s", l.Time.Format(time.RFC3339Nano), l.Severity, l.Text)
}

// DataKind tells which field of Data carries the result.
type DataKind string

const (
	DataKindJSON      DataKind = "json"
	DataKindProcessID DataKind = "process_id"
	DataKindThreadID  DataKind = "thread_id"
)

// Data is the result of a data-producing command. ID is the id of the
// instruction it answers.
type Data struct {
	ID        CommandID `json:"id"`
	Kind      DataKind  `json:"kind"`
	JSON      []string  `json:"json,omitempty"`
	ProcessID uint32    `json:"process_id,omitempty"`
	ThreadID  uint32    `json:"thread_id,omitempty"`
}

// MessageType implements Message.
func (*Data) MessageType() string { return TypeData }

// NewJSONData builds the answer to a find_json instruction.
func NewJSONData(id CommandID, docs []string) *Data {
	return &Data{ID: id, Kind: DataKindJSON, JSON: docs}
}

// NewProcessIDData builds the answer to a get_process_id instruction.
func NewProcessIDData(id CommandID, pid uint32) *Data {
	return &Data{ID: id, Kind: DataKindProcessID, ProcessID: pid}
}

// NewThreadIDData builds the answer to a get_thread_id instruction.
func NewThreadIDData(id CommandID, tid uint32) *Data {
	return &Data{ID: id, Kind: DataKindThreadID, ThreadID: tid}
}

func (d *Data) String() string {
	switch d.Kind {
	case DataKindJSON:
		return fmt.Sprintf("JSON(%d documents)", len(d.JSON))
	case DataKindProcessID:
		return fmt.Sprintf("ProcessID(%d)", d.ProcessID)
	case DataKindThreadID:
		return fmt.Sprintf("ThreadID(%d)", d.ThreadID)
	default:
		return fmt.Sprintf("Data(%s)", d.Kind)
	}
}

// Severity is the level of a forwarded log record.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityDebug
	SeverityVerbose
)

var severityNames = [...]string{"error", "warning", "info", "debug", "verbose"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("severity(%d)", int(s))
	}

	return severityNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(severityNames) {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}

	return []byte(severityNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))

	for i, n := range severityNames {
		if n == name {
			*s = Severity(i)

			return nil
		}
	}

	return fmt.Errorf("invalid severity %q", text)
}
