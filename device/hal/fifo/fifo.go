package fifo

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ardnew/softbulk/device/hal"
	"github.com/ardnew/softbulk/pkg"
)

// MaxEndpoints is the maximum number of data endpoints (1-15 IN and OUT).
const MaxEndpoints = 15

// File names inside a device directory.
const (
	fileBus        = "bus"
	fileDescriptor = "descriptor"
	devicePrefix   = "device-"
)

// pollTimeout bounds each blocking read so cancellation is noticed.
const pollTimeout = 100 * time.Millisecond

// HAL implements hal.DeviceHAL using named pipes (FIFOs).
// Each device instance creates a unique subdirectory under the bus directory
// so several devices can share one bus.
type HAL struct {
	// Bus directory (root directory shared with host)
	busDir string

	// Device subdirectory (busDir/device-{uuid}/)
	deviceDir string
	uuid      string

	// Bus event FIFO; the host writes bus frames
	busRead *os.File

	// Data endpoint FIFOs (indexed by endpoint number 1-15)
	epInWrite [MaxEndpoints]*os.File // Device writes IN data
	epOutRead [MaxEndpoints]*os.File // Device reads OUT data

	// State
	connected atomic.Bool
	speed     hal.Speed

	// Synchronization
	mutex     sync.RWMutex
	writeMu   sync.Mutex
	initDone  bool
	closeCh   chan struct{}
	closeOnce sync.Once
}

// New creates a new FIFO-based device HAL.
// The busDir parameter specifies the root bus directory shared with the host.
// The device will create its own subdirectory (device-{uuid}/) inside busDir.
func New(busDir string) *HAL {
	return &HAL{
		busDir:  busDir,
		speed:   hal.SpeedFull,
		closeCh: make(chan struct{}),
	}
}

// generateUUID generates a random UUID using crypto/rand.
func generateUUID() (string, error) {
	var uuid [16]byte
	if _, err := rand.Read(uuid[:]); err != nil {
		return "", err
	}
	// Set version 4 (random) bits
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return hex.EncodeToString(uuid[:]), nil
}

// Init creates the device subdirectory and its FIFOs.
func (h *HAL) Init(ctx context.Context) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.initDone {
		return pkg.ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	uuid, err := generateUUID()
	if err != nil {
		return fmt.Errorf("generate uuid: %w", err)
	}
	h.uuid = uuid
	h.deviceDir = filepath.Join(h.busDir, devicePrefix+uuid)

	if err := os.MkdirAll(h.deviceDir, 0o755); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}

	names := []string{fileBus}
	for i := 1; i <= MaxEndpoints; i++ {
		names = append(names, fmt.Sprintf("ep%d_in", i), fmt.Sprintf("ep%d_out", i))
	}
	for _, name := range names {
		if err := createFIFO(h.deviceDir, name); err != nil {
			h.cleanup()
			return err
		}
	}

	// O_RDWR keeps each FIFO open without waiting for the host side.
	h.busRead, err = openFIFO(h.deviceDir, fileBus, os.O_RDWR|syscall.O_NONBLOCK)
	if err != nil {
		h.cleanup()
		return err
	}
	for i := 1; i <= MaxEndpoints; i++ {
		idx := i - 1
		h.epInWrite[idx], err = openFIFO(h.deviceDir, fmt.Sprintf("ep%d_in", i), os.O_RDWR|syscall.O_NONBLOCK)
		if err != nil {
			h.cleanup()
			return err
		}
		h.epOutRead[idx], err = openFIFO(h.deviceDir, fmt.Sprintf("ep%d_out", i), os.O_RDWR|syscall.O_NONBLOCK)
		if err != nil {
			h.cleanup()
			return err
		}
	}

	h.initDone = true
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL initialized",
		"busDir", h.busDir,
		"deviceDir", h.deviceDir,
		"uuid", h.uuid)

	return nil
}

// PublishDescriptor writes the descriptor file hosts read on attach. Hosts
// only consider a device directory once this file exists.
func (h *HAL) PublishDescriptor(data []byte) error {
	h.mutex.RLock()
	dir := h.deviceDir
	h.mutex.RUnlock()

	if dir == "" {
		return pkg.ErrNotConfigured
	}
	tmp := filepath.Join(dir, fileDescriptor+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write descriptor: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, fileDescriptor))
}

// Start enables the HAL.
func (h *HAL) Start() error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.initDone {
		return pkg.ErrNotConfigured
	}
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL started")
	return nil
}

// Stop unblocks pending calls, closes all FIFOs and removes the device
// directory.
func (h *HAL) Stop() error {
	h.connected.Store(false)
	h.closeOnce.Do(func() {
		close(h.closeCh)
	})

	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.cleanup()

	h.initDone = false
	pkg.LogInfo(pkg.ComponentHAL, "fifo device HAL stopped")
	return nil
}

// cleanup closes all FIFOs and removes the device directory.
func (h *HAL) cleanup() {
	if h.busRead != nil {
		h.busRead.Close()
		h.busRead = nil
	}
	for i := 0; i < MaxEndpoints; i++ {
		if h.epInWrite[i] != nil {
			h.epInWrite[i].Close()
			h.epInWrite[i] = nil
		}
		if h.epOutRead[i] != nil {
			h.epOutRead[i].Close()
			h.epOutRead[i] = nil
		}
	}
	if h.deviceDir != "" {
		os.RemoveAll(h.deviceDir)
	}
}

// MaxPacketSize returns the largest packet the link carries.
func (h *HAL) MaxPacketSize() int {
	return hal.MaxPacketSize
}

// WaitBusEvent blocks until the host writes a bus frame.
func (h *HAL) WaitBusEvent(ctx context.Context) (hal.BusEvent, error) {
	h.mutex.RLock()
	f := h.busRead
	h.mutex.RUnlock()

	if f == nil {
		return hal.BusNone, pkg.ErrNotConfigured
	}

	var buf [hal.MaxPacketSize]byte
	for {
		frame, err := hal.ReadFrame(h.reader(ctx, f), buf[:])
		if err != nil {
			return hal.BusNone, err
		}
		if frame.Type != hal.FrameBus {
			pkg.LogWarn(pkg.ComponentHAL, "unexpected frame on bus FIFO", "type", frame.Type)
			continue
		}

		ev := frame.Event()
		switch ev {
		case hal.BusConnect:
			h.connected.Store(true)
		case hal.BusDisconnect:
			h.connected.Store(false)
		}
		pkg.LogDebug(pkg.ComponentHAL, "bus event", "event", ev.String())
		return ev, nil
	}
}

// Read reads one data frame from an OUT endpoint.
func (h *HAL) Read(ctx context.Context, address uint8, buf []byte) (int, error) {
	num := address & hal.EndpointNumber
	if num == 0 || num > MaxEndpoints || address&hal.EndpointDirIn != 0 {
		return 0, pkg.ErrInvalidEndpoint
	}

	h.mutex.RLock()
	f := h.epOutRead[num-1]
	h.mutex.RUnlock()

	if f == nil {
		return 0, pkg.ErrInvalidEndpoint
	}

	frame, err := hal.ReadFrame(h.reader(ctx, f), buf)
	if err != nil {
		return 0, err
	}
	if frame.Type != hal.FrameData {
		return 0, pkg.ErrProtocol
	}
	return len(frame.Payload), nil
}

// Write writes one data frame to an IN endpoint.
func (h *HAL) Write(ctx context.Context, address uint8, data []byte) (int, error) {
	num := address & hal.EndpointNumber
	if num == 0 || num > MaxEndpoints || address&hal.EndpointDirIn == 0 {
		return 0, pkg.ErrInvalidEndpoint
	}

	h.mutex.RLock()
	f := h.epInWrite[num-1]
	h.mutex.RUnlock()

	if f == nil {
		return 0, pkg.ErrInvalidEndpoint
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.closeCh:
		return 0, pkg.ErrCancelled
	default:
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := hal.WriteFrame(f, hal.DataFrame(address, data)); err != nil {
		return 0, err
	}
	return len(data), nil
}

// IsConnected returns true while a host holds the device configured.
func (h *HAL) IsConnected() bool {
	return h.connected.Load()
}

// GetSpeed returns the negotiated connection speed.
func (h *HAL) GetSpeed() hal.Speed {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.speed
}

// DeviceDir returns the device subdirectory path.
func (h *HAL) DeviceDir() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.deviceDir
}

// UUID returns the device's unique identifier.
func (h *HAL) UUID() string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.uuid
}

// reader returns an io.Reader over f that honors ctx and Stop.
func (h *HAL) reader(ctx context.Context, f *os.File) io.Reader {
	return &ctxReader{ctx: ctx, f: f, done: h.closeCh}
}

// createFIFO creates a named pipe in dir.
func createFIFO(dir, name string) error {
	path := filepath.Join(dir, name)

	// Remove existing file if any
	os.Remove(path)

	if err := syscall.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", name, err)
	}
	return nil
}

// openFIFO opens a named pipe in dir with the given flags.
func openFIFO(dir, name string, flag int) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// ctxReader reads from a non-blocking FIFO, retrying on deadline expiry
// until data arrives, ctx is done or done is closed.
type ctxReader struct {
	ctx  context.Context
	f    *os.File
	done <-chan struct{}
}

func (r *ctxReader) Read(p []byte) (int, error) {
	for {
		select {
		case <-r.ctx.Done():
			return 0, r.ctx.Err()
		case <-r.done:
			return 0, pkg.ErrCancelled
		default:
		}

		r.f.SetReadDeadline(time.Now().Add(pollTimeout))
		n, err := r.f.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !os.IsTimeout(err) && err != io.EOF {
			return 0, err
		}
		// Timeout or no writer yet; retry.
	}
}

// Compile-time interface checks
var (
	_ hal.DeviceHAL           = (*HAL)(nil)
	_ hal.DescriptorPublisher = (*HAL)(nil)
)
