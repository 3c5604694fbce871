package persistence

import "errors"

// ErrSerialization wraps all encode/decode failures raised by this package.
var ErrSerialization = errors.New("persistence: serialization error")

// ErrPluginUnsupported is returned by Reload on platforms where Go's
// plugin package is unavailable (anything but linux/darwin, cgo-enabled).
var ErrPluginUnsupported = errors.New("persistence: hot-reload plugins are not supported on this platform")
