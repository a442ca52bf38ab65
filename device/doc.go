// Package device runs a buffered bulk data channel over a link HAL.
//
// A [Driver] owns one [bulk.Channel] and a [hal.DeviceHAL]. It publishes the
// device's descriptor chain, turns bus events into channel lifecycle events
// and moves packets between the endpoints and the channel's rings.
//
// # Event Context
//
// The driver reads bus events and OUT packets and writes IN packets on
// separate goroutines, but all of them only post to a single event
// goroutine. That goroutine is the only code that touches the channel, the
// way an interrupt handler is the only code that touches a firmware
// endpoint. Use [Driver.Do] to inspect channel state from elsewhere; the
// liveness counters may be read directly.
//
// # Flow Control
//
// An OUT packet is held until the inbound buffer takes all of it. While it
// is held no further packets are read, so a slow processor pushes back on
// the host. Bytes the processor leaves in the inbound ring are offered again
// after the retry delay. No OUT packet is read until the host has connected,
// so data sent right after the connect survives the connect flush. The IN
// direction sends one packet at a time and schedules the next when the
// previous write completes.
//
// # Identity
//
// [DefaultIdentity] returns the reference vendor and product IDs with a
// serial number derived from the host machine ID. [MarshalIdentity] and
// [ParseIdentity] convert an identity to and from a standard descriptor
// chain (device, configuration, interface, two bulk endpoints, strings).
//
// # Example
//
//	cfg := device.DefaultConfig()
//	drv, err := device.NewDriver(cfg, fifo.New("/tmp/bulk-bus"))
//	if err != nil {
//	    return err
//	}
//	if err := drv.Start(ctx); err != nil {
//	    return err
//	}
//	defer drv.Stop()
//
//	mon := bulk.NewMonitor(drv.Channel().Counters())
//	mon.Run(ctx, 100*time.Millisecond, func(s bulk.Snapshot, _ bulk.Change) {
//	    fmt.Printf("\rTx: %d  Rx: %d", s.Sent, s.Received)
//	})
package device
