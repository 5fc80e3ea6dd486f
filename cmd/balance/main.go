package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"siliconflow-balance-plugin/internal/command"
	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/handlers"
	"siliconflow-balance-plugin/internal/plugin"
	"siliconflow-balance-plugin/internal/services"
	"siliconflow-balance-plugin/pkg/logger"
	"siliconflow-balance-plugin/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// errQueryFailed marks a query that ran but did not succeed.
// The message has already been printed, so main only sets the exit code.
var errQueryFailed = errors.New("balance query failed")

type options struct {
	configPath string
	logLevel   string
	chatType   string
	userID     string
	chatID     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errQueryFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "balance",
		Short:         "Query the SiliconFlow account balance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries command output only
			return logger.Initialize(&logger.Config{
				Level:       opts.logLevel,
				Environment: "development",
				OutputPaths: []string{"stderr"},
			})
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "plugin config file (default $PLUGIN_CONFIG_PATH or "+config.DefaultPluginConfigPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newQueryCmd(opts), newInfoCmd(opts))
	return root
}

func newQueryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [command-name] [args...]",
		Short: "Run the balance command once and print its reply",
		Long: `Run the balance command once, the way a chat message would trigger it.

The command name defaults to 余额; any registered alias works. The reply is
printed to stdout and the exit code is non-zero when the query fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.chatType, "chat-type", "private", "chat type: private or group")
	cmd.Flags().StringVar(&opts.userID, "user", "", "invoking user ID for permission checks")
	cmd.Flags().StringVar(&opts.chatID, "chat", "cli", "chat ID recorded in logs")
	return cmd
}

func runQuery(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}

	chatType, err := command.ParseChatType(opts.chatType)
	if err != nil {
		return err
	}

	mc := metrics.NewMetricsCollector()
	p := plugin.New(cfg, services.NewSiliconFlowClient(&cfg.API, mc), mc)

	registry := command.NewRegistry()
	if err := p.Register(registry); err != nil {
		return err
	}
	dispatcher := command.NewDispatcher(registry, p.Permissions(), nil)

	text := "余额"
	if len(args) > 0 {
		text = strings.Join(args, " ")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithCorrelationID(ctx, logger.NewID())

	inv := &command.Invocation{
		Text:     text,
		ChatType: chatType,
		ChatID:   opts.chatID,
		UserID:   opts.userID,
		Sender:   command.NewWriterSender(cmd.OutOrStdout()),
	}

	_, outcome, err := dispatcher.Dispatch(ctx, inv)
	if err != nil {
		return err
	}
	if !outcome.Success {
		return fmt.Errorf("%w: %s", errQueryFailed, outcome.Reason)
	}
	return nil
}

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the plugin manifest and its commands as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			p := plugin.New(cfg, nil, nil)
			infos := make([]handlers.CommandInfo, 0, len(p.Components()))
			for _, c := range p.Components() {
				infos = append(infos, handlers.CommandInfo{
					Name:        c.Name,
					Aliases:     c.Aliases,
					Description: c.Description,
					Permission:  c.Permission,
					ChatTypes:   c.ChatTypes.String(),
				})
			}

			out, err := json.MarshalIndent(map[string]interface{}{
				"plugin":   p.Manifest(),
				"commands": infos,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode manifest: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
