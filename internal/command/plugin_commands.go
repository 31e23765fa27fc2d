package command

func pluginLoadCommand() *Command {
	return &Command{
		Name:       "plugin-load",
		Help:       "Load a plugin by name.",
		Positional: []Positional{{Name: "name", Required: true}},
		Properties: []Property{strProp("name", true), strProp("path", false)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name := req["name"].(string)
			return nil, d.LoadPlugin(name, str(req, "path", ""))
		},
	}
}

func pluginUnloadCommand() *Command {
	return &Command{
		Name:       "plugin-unload",
		Help:       "Unload a plugin.",
		Positional: []Positional{{Name: "name", Required: true}},
		Properties: []Property{strProp("name", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			return nil, d.UnloadPlugin(req["name"].(string))
		},
	}
}

func pluginReloadCommand() *Command {
	return &Command{
		Name:       "plugin-reload",
		Help:       "Reload a plugin.",
		Positional: []Positional{{Name: "name", Required: true}},
		Properties: []Property{strProp("name", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			return nil, d.ReloadPlugin(req["name"].(string))
		},
	}
}

func pluginListCommand() *Command {
	return &Command{
		Name: "plugin-list",
		Help: "List every loaded plugin.",
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			return map[string]any{"list": d.PluginNames()}, nil
		},
	}
}

func pluginInfoCommand() *Command {
	return &Command{
		Name:       "plugin-info",
		Help:       "Describe a plugin's metadata.",
		Positional: []Positional{{Name: "name", Required: true}},
		Properties: []Property{strProp("name", true)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name := req["name"].(string)
			info, ok := d.PluginInfo(name)
			if !ok {
				return nil, &ErrNoSuchPlugin{Name: name}
			}
			return info, nil
		},
	}
}

func pluginConfigCommand() *Command {
	return &Command{
		Name:       "plugin-config",
		Help:       "Get or set a plugin's configuration.",
		Positional: []Positional{{Name: "name", Required: true}, {Name: "variable", Required: false}, {Name: "value", Required: false}},
		Properties: []Property{strProp("name", true), strProp("variable", false), strProp("value", false)},
		Handler: func(d Daemon, req map[string]any) (map[string]any, error) {
			name := req["name"].(string)
			set := map[string]string{}
			if variable, ok := req["variable"].(string); ok && variable != "" {
				set[variable] = str(req, "value", "")
			}
			cfg, err := d.PluginConfig(name, set)
			if err != nil {
				return nil, err
			}
			out := make(map[string]any, len(cfg))
			for k, v := range cfg {
				out[k] = v
			}
			return map[string]any{"config": out}, nil
		},
	}
}

func allCommands() []*Command {
	return []*Command{
		serverConnectCommand(),
		serverDisconnectCommand(),
		serverReconnectCommand(),
		serverListCommand(),
		serverInfoCommand(),
		serverMessageCommand(),
		serverMeCommand(),
		serverNoticeCommand(),
		serverCModeCommand(),
		serverCNoticeCommand(),
		serverInviteCommand(),
		serverJoinCommand(),
		serverKickCommand(),
		serverModeCommand(),
		serverNickCommand(),
		serverPartCommand(),
		serverTopicCommand(),
		ruleAddCommand(),
		ruleRemoveCommand(),
		ruleListCommand(),
		ruleInsertCommand(),
		pluginLoadCommand(),
		pluginUnloadCommand(),
		pluginReloadCommand(),
		pluginListCommand(),
		pluginInfoCommand(),
		pluginConfigCommand(),
	}
}
