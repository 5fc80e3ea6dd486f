package handlers

import (
	"net/http"

	"siliconflow-balance-plugin/internal/command"
	"siliconflow-balance-plugin/internal/plugin"

	"github.com/gin-gonic/gin"
)

// CommandInfo is the public view of a registered command
type CommandInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Permission  string   `json:"permission,omitempty"`
	ChatTypes   string   `json:"chat_types"`
}

// PluginHandler serves the plugin manifest
type PluginHandler struct {
	manifest *plugin.Manifest
	registry *command.Registry
}

// NewPluginHandler creates a new PluginHandler
func NewPluginHandler(manifest *plugin.Manifest, registry *command.Registry) *PluginHandler {
	return &PluginHandler{manifest: manifest, registry: registry}
}

// GetManifest handles GET /api/plugin
func (h *PluginHandler) GetManifest(c *gin.Context) {
	cmds := h.registry.Commands()
	infos := make([]CommandInfo, 0, len(cmds))
	for _, cmd := range cmds {
		infos = append(infos, CommandInfo{
			Name:        cmd.Name,
			Aliases:     cmd.Aliases,
			Description: cmd.Description,
			Permission:  cmd.Permission,
			ChatTypes:   cmd.ChatTypes.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"plugin":   h.manifest,
		"commands": infos,
	})
}
