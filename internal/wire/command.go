package wire

import (
	"fmt"

	"github.com/wagiedev/workerctl/internal/errors"
)

// CommandID identifies an issued command. IDs are assigned by the tracker,
// strictly increasing and never reused within a session.
type CommandID uint64

// Command is a request the worker knows how to execute.
type Command string

const (
	// CommandFindJSON asks the worker to scan its sources for JSON documents.
	CommandFindJSON Command = "find_json"
	// CommandGetProcessID asks for the worker's process id.
	CommandGetProcessID Command = "get_process_id"
	// CommandGetThreadID asks for the id of the thread executing the command.
	CommandGetThreadID Command = "get_thread_id"
	// CommandQuit tells the worker to stop its loop and exit.
	CommandQuit Command = "quit"
)

// Commands returns every supported command in a stable order.
func Commands() []Command {
	return []Command{CommandFindJSON, CommandGetProcessID, CommandGetThreadID, CommandQuit}
}

// ParseCommand converts a command name into a Command.
func ParseCommand(name string) (Command, error) {
	c := Command(name)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownCommand, name)
	}

	return c, nil
}

// Valid reports whether c is one of the supported commands.
func (c Command) Valid() bool {
	switch c {
	case CommandFindJSON, CommandGetProcessID, CommandGetThreadID, CommandQuit:
		return true
	default:
		return false
	}
}

// ProducesData reports whether the worker answers c with a Data message.
// Commands that produce no data are complete once acknowledged.
func (c Command) ProducesData() bool {
	return c.Valid() && c != CommandQuit
}

func (c Command) String() string {
	return string(c)
}

// Instruction is the unit sent from controller to worker.
type Instruction struct {
	ID      CommandID `json:"id"`
	Command Command   `json:"command"`
}
