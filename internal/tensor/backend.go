package tensor

// Device represents where a storage's bytes live.
type Device int

// Supported devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// CopyDirection tells a Backend which sides of a Copy are host or device memory.
type CopyDirection int

// Copy directions.
const (
	HostToHost CopyDirection = iota
	HostToDevice
	DeviceToHost
	DeviceToDevice
)

// String returns the direction name.
func (d CopyDirection) String() string {
	switch d {
	case HostToHost:
		return "host->host"
	case HostToDevice:
		return "host->device"
	case DeviceToHost:
		return "device->host"
	case DeviceToDevice:
		return "device->device"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to a buffer obtained from a Backend.
type Handle interface {
	// Len returns the buffer size in bytes.
	Len() int
}

// HostHandle is a Handle whose bytes are directly addressable by the CPU.
// Tensors can only be evaluated over host handles.
type HostHandle interface {
	Handle
	Bytes() []byte
}

// Backend is the narrow storage contract the engine depends on.
// It is implemented by backend/cpu (host memory) and backend/webgpu (GPU buffers).
type Backend interface {
	// Name identifies the backend in errors and logs.
	Name() string

	// Device reports where the buffers of this backend live.
	Device() Device

	// Allocate obtains a buffer of byteCount bytes, or fails with an AllocationError.
	Allocate(byteCount int) (Handle, error)

	// Release gives a buffer back to the backend. The handle must not be used afterwards.
	Release(h Handle)

	// Copy transfers byteCount bytes from src to dst.
	Copy(src, dst Handle, byteCount int, dir CopyDirection) error
}

// hostHandle wraps caller-supplied bytes. It is never released through a Backend.
type hostHandle []byte

func (h hostHandle) Len() int      { return len(h) }
func (h hostHandle) Bytes() []byte { return h }
