package main

import (
	"errors"
	"os"

	"github.com/tinytelemetry/scrubstat/internal/collect"
)

// InputSourcePlugin is a small plugin primitive for selecting the log input.
type InputSourcePlugin interface {
	Name() string
	Enabled() bool
	Path() string
}

// InputPluginConfig defines runtime input selection.
type InputPluginConfig struct {
	Path string
}

func buildInputPlugins(cfg InputPluginConfig) []InputSourcePlugin {
	plugins := make([]InputSourcePlugin, 0, 2)
	plugins = append(plugins, pathInputPlugin{path: cfg.Path})
	plugins = append(plugins, stdinInputPlugin{})
	return plugins
}

// resolveInput returns the path of the first enabled plugin.
func resolveInput(plugins []InputSourcePlugin) (string, error) {
	for _, p := range plugins {
		if p.Enabled() {
			return p.Path(), nil
		}
	}
	return "", errors.New("no input: pass --path or pipe `zgrep -H` output on stdin")
}

type pathInputPlugin struct {
	path string
}

func (p pathInputPlugin) Name() string  { return "path" }
func (p pathInputPlugin) Enabled() bool { return p.path != "" }
func (p pathInputPlugin) Path() string  { return p.path }

type stdinInputPlugin struct{}

func (p stdinInputPlugin) Name() string { return "stdin" }

func (p stdinInputPlugin) Enabled() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func (p stdinInputPlugin) Path() string { return collect.StdinPath }
