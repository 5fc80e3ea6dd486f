package plugin

// Manifest describes the plugin to the host
type Manifest struct {
	Name           string           `json:"name"`
	DisplayName    string           `json:"display_name"`
	Description    string           `json:"description"`
	Usage          string           `json:"usage"`
	Author         string           `json:"author"`
	Version        string           `json:"version"`
	License        string           `json:"license"`
	Keywords       []string         `json:"keywords"`
	Categories     []string         `json:"categories"`
	ConfigFileName string           `json:"config_file_name"`
	Enabled        bool             `json:"enabled"`
	ConfigSchema   []ConfigField    `json:"config_schema"`
	Permissions    []PermissionNode `json:"permission_nodes"`
}

// ConfigField documents one setting of the plugin config file
type ConfigField struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	Default     string `json:"default"`
	Description string `json:"description"`
}

// PermissionNode is a permission the plugin declares to the host
type PermissionNode struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

const (
	// Name is the plugin identifier used for its config directory
	Name = "siliconflow_balance_plugin"

	// PermissionQueryBalance guards the balance command
	PermissionQueryBalance = "query_balance"

	usage = `使用 /余额 命令查询 SiliconFlow 账户余额。

命令：
- /余额 - 查询当前账户余额
- /siliconflow_balance - 完整命令名
- /sf余额 - 快捷别名
- /硅基余额 - 中文别名

配置：
在 config/plugins/siliconflow_balance_plugin/config.toml 中设置 API Key`
)

// NewManifest returns the manifest; enabled reflects the loaded config
func NewManifest(enabled bool) *Manifest {
	return &Manifest{
		Name:           Name,
		DisplayName:    "硅基流动余额查询",
		Description:    "查询 SiliconFlow (硅基流动) API 账户余额",
		Usage:          usage,
		Author:         "ikun两年半",
		Version:        "1.0.0",
		License:        "AGPL",
		Keywords:       []string{"siliconflow", "硅基流动", "余额", "API"},
		Categories:     []string{"工具"},
		ConfigFileName: "config.toml",
		Enabled:        enabled,
		ConfigSchema: []ConfigField{
			{
				Key:         "api.api_key",
				Type:        "string",
				Default:     "",
				Description: "SiliconFlow API Key，从 https://cloud.siliconflow.cn/account/ak 获取",
			},
		},
		Permissions: []PermissionNode{
			{Name: PermissionQueryBalance, Description: "允许用户查询 SiliconFlow 余额"},
		},
	}
}
