//go:build linux || darwin

package persistence

import "plugin"

// pluginHandle wraps the subset of *plugin.Plugin the module table needs.
type pluginHandle struct {
	p *plugin.Plugin
}

func (h pluginHandle) Lookup(symbol string) (interface{}, error) {
	sym, err := h.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func openPlugin(hostPath string) (pluginHandle, error) {
	p, err := plugin.Open(hostPath)
	if err != nil {
		return pluginHandle{}, err
	}
	return pluginHandle{p: p}, nil
}
