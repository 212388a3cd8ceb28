package ember

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// WgpuBackend compiles baked WGSL through a webgpu device and uploads
// property uniform data through its queue.
type WgpuBackend struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

func NewWgpuBackend(device *wgpu.Device, queue *wgpu.Queue) *WgpuBackend {
	return &WgpuBackend{device: device, queue: queue}
}

func (b *WgpuBackend) CreateShader(label, source string) (*Shader, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	return &Shader{Backend: module}, nil
}

// CreatePropertyBuffer allocates the uniform buffer one effect instance
// uploads its property block into.
func (b *WgpuBackend) CreatePropertyBuffer(label string, layout PropertyLayout) (*wgpu.Buffer, error) {
	if layout.Size() == 0 {
		return nil, nil
	}
	buffer, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(layout.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create property buffer: %w", err)
	}
	return buffer, nil
}

// WriteProperties uploads a packed property block.
func (b *WgpuBackend) WriteProperties(buffer *wgpu.Buffer, data []byte) error {
	if buffer == nil || len(data) == 0 {
		return nil
	}
	return b.queue.WriteBuffer(buffer, 0, data)
}
