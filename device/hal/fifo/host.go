package fifo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

// pollInterval is how often Open rescans the bus directory.
const pollInterval = 50 * time.Millisecond

// Host implements hal.HostHAL over a FIFO bus directory. It attaches to the
// first device directory that has published its descriptor.
type Host struct {
	busDir string

	mutex     sync.RWMutex
	deviceDir string
	bus       *os.File
	epOut     [MaxEndpoints]*os.File // Host writes OUT data
	epIn      [MaxEndpoints]*os.File // Host reads IN data

	closeCh   chan struct{}
	closeOnce sync.Once
}

// NewHost creates a host-side FIFO HAL for busDir.
func NewHost(busDir string) *Host {
	return &Host{
		busDir:  busDir,
		closeCh: make(chan struct{}),
	}
}

// Open waits for a device directory with a descriptor and opens its FIFOs.
func (h *Host) Open(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if dir := h.findDevice(); dir != "" {
			if err := h.openDevice(dir); err != nil {
				return err
			}
			pkg.LogInfo(pkg.ComponentHAL, "attached to device", "dir", dir)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.closeCh:
			return pkg.ErrCancelled
		case <-ticker.C:
		}
	}
}

// findDevice returns the first ready device directory, or "".
func (h *Host) findDevice() string {
	entries, err := os.ReadDir(h.busDir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), devicePrefix) {
			continue
		}
		dir := filepath.Join(h.busDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, fileDescriptor)); err == nil {
			return dir
		}
	}
	return ""
}

// openDevice opens every FIFO of the device in dir.
func (h *Host) openDevice(dir string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	var err error
	h.bus, err = openFIFO(dir, fileBus, os.O_WRONLY|syscall.O_NONBLOCK)
	if err != nil {
		return err
	}
	for i := 1; i <= MaxEndpoints; i++ {
		idx := i - 1

		// Open epN_out for writing (host writes, device reads)
		h.epOut[idx], err = openFIFO(dir, fmt.Sprintf("ep%d_out", i), os.O_WRONLY|syscall.O_NONBLOCK)
		if err != nil {
			h.closeFiles()
			return err
		}

		// Open epN_in for reading (device writes, host reads)
		h.epIn[idx], err = openFIFO(dir, fmt.Sprintf("ep%d_in", i), os.O_RDONLY|syscall.O_NONBLOCK)
		if err != nil {
			h.closeFiles()
			return err
		}
	}
	h.deviceDir = dir
	return nil
}

// closeFiles closes all FIFOs. Caller must hold the lock.
func (h *Host) closeFiles() {
	if h.bus != nil {
		h.bus.Close()
		h.bus = nil
	}
	for i := 0; i < MaxEndpoints; i++ {
		if h.epOut[i] != nil {
			h.epOut[i].Close()
			h.epOut[i] = nil
		}
		if h.epIn[i] != nil {
			h.epIn[i].Close()
			h.epIn[i] = nil
		}
	}
}

// Close detaches from the device and unblocks pending reads.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.closeCh)
	})

	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.closeFiles()
	h.deviceDir = ""
	return nil
}

// Signal writes a bus frame to the device.
func (h *Host) Signal(ctx context.Context, ev hal.BusEvent) error {
	h.mutex.RLock()
	f := h.bus
	h.mutex.RUnlock()

	if f == nil {
		return pkg.ErrNoDevice
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return hal.WriteFrame(f, hal.BusFrame(ev))
}

// Write sends one data frame to an OUT endpoint.
func (h *Host) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	num := address & hal.EndpointNumber
	if num == 0 || num > MaxEndpoints || address&hal.EndpointDirIn != 0 {
		return 0, pkg.ErrInvalidEndpoint
	}

	h.mutex.RLock()
	f := h.epOut[num-1]
	h.mutex.RUnlock()

	if f == nil {
		return 0, pkg.ErrNoDevice
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := hal.WriteFrame(f, hal.DataFrame(address, data)); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Read receives one data frame from an IN endpoint.
func (h *Host) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	num := address & hal.EndpointNumber
	if num == 0 || num > MaxEndpoints || address&hal.EndpointDirIn == 0 {
		return 0, pkg.ErrInvalidEndpoint
	}

	h.mutex.RLock()
	f := h.epIn[num-1]
	h.mutex.RUnlock()

	if f == nil {
		return 0, pkg.ErrNoDevice
	}

	frame, err := hal.ReadFrame(&ctxReader{ctx: ctx, f: f, done: h.closeCh}, buf)
	if err != nil {
		return 0, err
	}
	if frame.Type != hal.FrameData {
		return 0, pkg.ErrProtocol
	}
	return len(frame.Payload), nil
}

// Descriptor reads the device's published descriptor file.
func (h *Host) Descriptor(ctx context.Context) ([]byte, error) {
	h.mutex.RLock()
	dir := h.deviceDir
	h.mutex.RUnlock()

	if dir == "" {
		return nil, pkg.ErrNoDevice
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(dir, fileDescriptor))
}

// DeviceDir returns the attached device directory, or "".
func (h *Host) DeviceDir() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.deviceDir
}

// Ensure Host implements hal.HostHAL.
var _ hal.HostHAL = (*Host)(nil)
