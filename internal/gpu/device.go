package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Device bundles an open adapter with the instance that owns it.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	instance hal.Instance
	name     string
}

// Name is the adapter's reported name.
func (d *Device) Name() string { return d.name }

// Close destroys the device and its instance.
func (d *Device) Close() {
	if d.Device != nil {
		d.Device.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
}

// Acquire opens the best available adapter on the Vulkan backend,
// preferring discrete then integrated GPUs. Failure means "run on the
// CPU", not a fatal condition, and is reported as ErrUnavailable.
func Acquire() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not registered", ErrUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrUnavailable, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrUnavailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open adapter %q: %w", ErrUnavailable, selected.Info.Name, err)
	}
	return &Device{
		Device:   open.Device,
		Queue:    open.Queue,
		instance: instance,
		name:     selected.Info.Name,
	}, nil
}
