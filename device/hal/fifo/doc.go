// Package fifo implements a FIFO-based link HAL using named pipes.
//
// This HAL is intended for testing and simulation. It lets a device process
// and a host process exchange bulk packets and bus events through named
// pipes in the filesystem, with no hardware or network involved.
//
// # Architecture
//
// Each device instance creates a unique subdirectory under a shared bus
// directory:
//
//	/tmp/bulk-bus/                   # Bus directory (shared with host)
//	└── device-{uuid}/               # Device subdirectory (unique per device)
//	    ├── bus                      # Bus event frames (host → device)
//	    ├── descriptor               # Descriptor chain (regular file)
//	    ├── ep1_in, ep1_out          # Endpoint 1 data FIFOs
//	    └── ...                      # (up to ep15_in/ep15_out)
//
// Every FIFO carries [hal.Frame] encoded frames. The UUID is generated using
// crypto/rand, enabling safe parallel testing with multiple device instances.
//
// # Attaching
//
// The device writes its descriptor file once its FIFOs are open. [Host.Open]
// polls the bus directory and attaches to the first device directory whose
// descriptor file exists, then raises bus events through the bus FIFO.
//
// # Usage
//
//	// Device side
//	link := fifo.New("/tmp/bulk-bus")
//	drv := device.NewDriver(cfg, link)
//	drv.Start(ctx)
//
//	// Host side
//	host := fifo.NewHost("/tmp/bulk-bus")
//	host.Open(ctx)
//	host.Signal(ctx, hal.BusConnect)
//	host.Write(ctx, 0x01, []byte("hello"))
package fifo
