package wire

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/wagiedev/workerctl/internal/errors"
)

// Codec converts values of T to and from single wire frames.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(frame []byte) (T, error)
}

// Compile-time verification of the provided codecs.
var (
	_ Codec[Instruction] = InstructionCodec{}
	_ Codec[Message]     = MessageCodec{}
)

// InstructionCodec encodes Instructions as {"id":N,"command":"..."}.
type InstructionCodec struct{}

// Encode implements Codec.
func (InstructionCodec) Encode(in Instruction) ([]byte, error) {
	if !in.Command.Valid() {
		return nil, fmt.Errorf("encode instruction %d: %w: %q", in.ID, errors.ErrUnknownCommand, in.Command)
	}

	return json.Marshal(in)
}

// Decode implements Codec. An unsupported command name is a DecodeError
// wrapping ErrUnknownCommand.
func (InstructionCodec) Decode(frame []byte) (Instruction, error) {
	var in Instruction

	if err := json.Unmarshal(frame, &in); err != nil {
		return Instruction{}, &errors.DecodeError{RawData: string(frame), Err: err}
	}

	if !in.Command.Valid() {
		return Instruction{}, &errors.DecodeError{
			RawData: string(frame),
			Err:     fmt.Errorf("%w: %q", errors.ErrUnknownCommand, in.Command),
		}
	}

	return in, nil
}

// envelope is the tagged union carried on the wire for Messages.
type envelope struct {
	Type string     `json:"type"`
	ID   *CommandID `json:"id,omitempty"`
	Log  *Log       `json:"log,omitempty"`
	Data *Data      `json:"data,omitempty"`
}

// MessageCodec encodes Messages as {"type":"...", ...} envelopes.
type MessageCodec struct{}

// Encode implements Codec.
func (MessageCodec) Encode(msg Message) ([]byte, error) {
	env := envelope{}

	switch m := msg.(type) {
	case *Ready:
		env.Type = TypeReady
	case *Exiting:
		env.Type = TypeExiting
	case *Ack:
		id := m.ID
		env.Type = TypeAck
		env.ID = &id
	case *Log:
		env.Type = TypeLog
		env.Log = m
	case *Data:
		env.Type = TypeData
		env.Data = m
	default:
		return nil, fmt.Errorf("encode message %T: %w", msg, errors.ErrUnknownMessageType)
	}

	return json.Marshal(env)
}

// Decode implements Codec. Frames with an unrecognised type return
// ErrUnknownMessageType; callers should skip those rather than fail.
func (MessageCodec) Decode(frame []byte) (Message, error) {
	var env envelope

	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &errors.DecodeError{RawData: string(frame), Err: err}
	}

	switch env.Type {
	case TypeReady:
		return &Ready{}, nil
	case TypeExiting:
		return &Exiting{}, nil
	case TypeAck:
		if env.ID == nil {
			return nil, &errors.DecodeError{RawData: string(frame), Err: fmt.Errorf("ack: missing 'id' field")}
		}

		return &Ack{ID: *env.ID}, nil
	case TypeLog:
		if env.Log == nil {
			return nil, &errors.DecodeError{RawData: string(frame), Err: fmt.Errorf("log: missing 'log' field")}
		}

		return env.Log, nil
	case TypeData:
		if env.Data == nil {
			return nil, &errors.DecodeError{RawData: string(frame), Err: fmt.Errorf("data: missing 'data' field")}
		}

		return env.Data, nil
	case "":
		return nil, &errors.DecodeError{RawData: string(frame), Err: fmt.Errorf("missing or invalid 'type' field")}
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownMessageType, env.Type)
	}
}
