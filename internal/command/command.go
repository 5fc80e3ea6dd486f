// Package command is the chat command surface: command records, the
// registry that resolves names and aliases, and the dispatcher that checks
// chat type and permission before running a handler.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCommand       = errors.New("empty command")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrDuplicateCommand   = errors.New("duplicate command name or alias")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrChatTypeNotAllowed = errors.New("chat type not allowed")
)

// ChatType is a bit set of the chat contexts a command accepts
type ChatType uint8

const (
	ChatTypePrivate ChatType = 1 << iota
	ChatTypeGroup

	ChatTypeAll = ChatTypePrivate | ChatTypeGroup
)

// ParseChatType maps "private", "group" or "all" to a ChatType
func ParseChatType(s string) (ChatType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "private", "":
		return ChatTypePrivate, nil
	case "group":
		return ChatTypeGroup, nil
	case "all":
		return ChatTypeAll, nil
	default:
		return 0, fmt.Errorf("unknown chat type %q", s)
	}
}

// Allows reports whether every bit of other is in t
func (t ChatType) Allows(other ChatType) bool {
	return other != 0 && t&other == other
}

func (t ChatType) String() string {
	switch t {
	case ChatTypePrivate:
		return "private"
	case ChatTypeGroup:
		return "group"
	case ChatTypeAll:
		return "all"
	default:
		return fmt.Sprintf("ChatType(%d)", uint8(t))
	}
}

// MessageSender delivers text back to the chat an invocation came from
type MessageSender interface {
	SendText(ctx context.Context, text string) error
}

// Invocation is one user-triggered command call
type Invocation struct {
	Text     string
	ChatType ChatType
	ChatID   string
	UserID   string
	Sender   MessageSender

	// Filled in by the dispatcher
	ID      string
	Command string
	Args    []string
}

// Outcome is what a handler reports back to the host.
// Intercept tells the host the message was consumed and should not be
// passed on to other handlers.
type Outcome struct {
	Success   bool
	Reason    string
	Intercept bool
}

// HandlerFunc runs a command
type HandlerFunc func(ctx context.Context, inv *Invocation) Outcome

// Command is the registration record for one chat command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Permission  string
	ChatTypes   ChatType
	Handler     HandlerFunc
}

// Names returns the command name followed by its aliases
func (c *Command) Names() []string {
	return append([]string{c.Name}, c.Aliases...)
}
