package driver

import (
	"errors"
	"sync"
)

// ErrNotAvailable is returned when no usable driver is registered.
var ErrNotAvailable = errors.New("driver: no driver available")

// Well-known driver names.
const (
	// DriverVulkan is the native Vulkan driver.
	DriverVulkan = "vulkan"

	// DriverNull is the recording no-GPU driver used in tests.
	DriverNull = "null"
)

// Factory creates a new device instance.
type Factory func() (Device, error)

// registry holds registered drivers.
var (
	registryMu sync.RWMutex
	drivers    = make(map[string]Factory)
	// Priority order for driver selection (first available wins).
	driverPriority = []string{DriverVulkan, DriverNull}
)

// Register registers a driver factory with the given name.
// This is typically called from init() functions in driver packages.
// If a driver with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	drivers[name] = factory
}

// Unregister removes a driver from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(drivers, name)
}

// Available returns a list of registered driver names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a driver with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := drivers[name]
	return ok
}

// Open creates a device from the named driver.
func Open(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := drivers[name]
	registryMu.RUnlock()

	if !ok {
		return nil, ErrNotAvailable
	}
	return factory()
}

// Default creates a device from the best available driver based on
// priority. Priority order: vulkan > null.
func Default() (Device, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range driverPriority {
		if factory, ok := drivers[name]; ok {
			dev, err := factory()
			if err == nil && dev != nil {
				return dev, nil
			}
		}
	}

	// Fallback: first driver that opens.
	for _, factory := range drivers {
		if dev, err := factory(); err == nil && dev != nil {
			return dev, nil
		}
	}

	return nil, ErrNotAvailable
}
