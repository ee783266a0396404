package driver

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Provider exposes the shared GPU context objects a host application may
// already own. Drivers that wrap an existing context (a windowing layer, a
// compositor) hand one to the core; drivers that own their device outright
// return NullProvider.
type Provider = gpucontext.DeviceProvider

// NullProvider is a Provider with nil context objects. Used by drivers
// that do not sit on a shared gpucontext device, such as the null driver.
type NullProvider struct{}

// Device returns nil for the null provider.
func (NullProvider) Device() gpucontext.Device { return nil }

// Queue returns nil for the null provider.
func (NullProvider) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null provider.
func (NullProvider) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns empty adapter info for the null provider.
func (NullProvider) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }

// SurfaceFormat returns undefined format for the null provider.
func (NullProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullProvider implements Provider.
var _ Provider = NullProvider{}
