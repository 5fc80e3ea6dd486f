package command

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"siliconflow-balance-plugin/pkg/logger"

	"go.uber.org/zap"
)

// Registry maps command names and aliases to commands
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Command
	commands []*Command
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds cmd under its name and every alias.
// Nothing is registered if any of them is already taken.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.Name == "" || cmd.Handler == nil {
		return fmt.Errorf("invalid command registration: name and handler are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	names := cmd.Names()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		key := normalize(name)
		if _, taken := r.byName[key]; taken || seen[key] {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
		}
		seen[key] = true
	}

	for key := range seen {
		r.byName[key] = cmd
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Lookup resolves a name or alias
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.byName[normalize(name)]
	return cmd, ok
}

// Commands returns the registered commands sorted by name
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Command, len(r.commands))
	copy(out, r.commands)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Dispatcher parses invocation text and runs the matching command
type Dispatcher struct {
	registry    *Registry
	permissions PermissionChecker
	prefixes    []string
}

// NewDispatcher creates a dispatcher. Text must start with one of prefixes
// unless prefixes is empty. A nil checker allows everything.
func NewDispatcher(registry *Registry, permissions PermissionChecker, prefixes []string) *Dispatcher {
	if permissions == nil {
		permissions = AllowAll{}
	}
	return &Dispatcher{
		registry:    registry,
		permissions: permissions,
		prefixes:    prefixes,
	}
}

// Parse splits text into a command name and arguments after stripping
// the longest matching prefix
func (d *Dispatcher) Parse(text string) (string, []string, error) {
	text = strings.TrimSpace(text)

	if len(d.prefixes) > 0 {
		matched := ""
		for _, p := range d.prefixes {
			if strings.HasPrefix(text, p) && len(p) > len(matched) {
				matched = p
			}
		}
		if matched == "" {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownCommand, text)
		}
		text = text[len(matched):]
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, ErrEmptyCommand
	}
	return fields[0], fields[1:], nil
}

// Dispatch resolves inv.Text, checks chat type and permission, and runs
// the handler. Errors are only returned when no handler ran.
func (d *Dispatcher) Dispatch(ctx context.Context, inv *Invocation) (*Command, Outcome, error) {
	name, args, err := d.Parse(inv.Text)
	if err != nil {
		return nil, Outcome{}, err
	}

	cmd, ok := d.registry.Lookup(name)
	if !ok {
		return nil, Outcome{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	if inv.ChatType == 0 {
		inv.ChatType = ChatTypePrivate
	}
	if !cmd.ChatTypes.Allows(inv.ChatType) {
		return cmd, Outcome{}, fmt.Errorf("%w: %s in %s chat", ErrChatTypeNotAllowed, cmd.Name, inv.ChatType)
	}
	if cmd.Permission != "" && !d.permissions.HasPermission(inv.UserID, cmd.Permission) {
		return cmd, Outcome{}, fmt.Errorf("%w: %s requires %s", ErrPermissionDenied, cmd.Name, cmd.Permission)
	}

	if inv.ID == "" {
		inv.ID = logger.NewID()
	}
	inv.Command = cmd.Name
	inv.Args = args

	ctx = logger.ContextWithInvocation(ctx, inv.ID, inv.UserID, inv.ChatID)
	log := logger.GetLogger().WithContext(ctx)

	log.Debug("Dispatching command",
		zap.String("command", cmd.Name),
		zap.String("invoked_as", name),
		zap.Stringer("chat_type", inv.ChatType),
		zap.Int("arg_count", len(args)),
	)

	outcome := cmd.Handler(ctx, inv)

	log.Info("Command completed",
		zap.String("command", cmd.Name),
		zap.Bool("success", outcome.Success),
		zap.String("reason", outcome.Reason),
	)

	return cmd, outcome, nil
}
