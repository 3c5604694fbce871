//go:build !linux && !darwin

package persistence

type pluginHandle struct{}

func (h pluginHandle) Lookup(symbol string) (interface{}, error) {
	return nil, ErrPluginUnsupported
}

func openPlugin(hostPath string) (pluginHandle, error) {
	return pluginHandle{}, ErrPluginUnsupported
}
