// Package plugin wires the SiliconFlow balance command into a host's
// command registry.
package plugin

import (
	"fmt"

	"siliconflow-balance-plugin/internal/command"
	"siliconflow-balance-plugin/internal/config"
	"siliconflow-balance-plugin/internal/services"
	"siliconflow-balance-plugin/pkg/logger"
	"siliconflow-balance-plugin/pkg/metrics"

	"go.uber.org/zap"
)

// Plugin bundles the manifest and the command components
type Plugin struct {
	config   *config.Config
	manifest *Manifest
	balance  *BalanceCommand
}

// New builds the plugin around querier
func New(cfg *config.Config, querier services.BalanceQuerier, mc *metrics.MetricsCollector) *Plugin {
	return &Plugin{
		config:   cfg,
		manifest: NewManifest(cfg.Plugin.Enabled),
		balance:  NewBalanceCommand(cfg, querier, mc),
	}
}

// Manifest returns the plugin description
func (p *Plugin) Manifest() *Manifest {
	return p.manifest
}

// Components returns the commands the plugin provides
func (p *Plugin) Components() []*command.Command {
	return []*command.Command{p.balance.Command()}
}

// Register adds the plugin's commands to reg. A disabled plugin registers nothing.
func (p *Plugin) Register(reg *command.Registry) error {
	log := logger.GetLogger()

	if !p.config.Plugin.Enabled {
		log.Info("Plugin disabled, skipping registration", zap.String("plugin", Name))
		return nil
	}

	for _, cmd := range p.Components() {
		if err := reg.Register(cmd); err != nil {
			return fmt.Errorf("failed to register %s: %w", cmd.Name, err)
		}
		log.Info("Registered command",
			zap.String("plugin", Name),
			zap.String("command", cmd.Name),
			zap.Strings("aliases", cmd.Aliases),
		)
	}
	return nil
}

// Permissions returns the checker for the plugin's permission nodes
func (p *Plugin) Permissions() command.PermissionChecker {
	return command.NewUserAllowlist(p.config.Permission.AllowedUsers, PermissionQueryBalance)
}
