// Package prof captures runtime profiles of a running device.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./examples/bulk-echo/device
//
// Without the tag [Start] returns a session that records nothing, so callers
// keep their profiling flags in place at no cost.
//
// A session streams a CPU profile for its whole lifetime and writes the
// requested snapshot profiles when it stops:
//
//	s, err := prof.Start(prof.Options{CPU: "cpu.prof", Heap: "heap.prof"})
//	if err != nil {
//		return err
//	}
//	defer s.Stop()
//
// Only one session may run at a time; a second Start returns
// [ErrActive].
package prof

import "errors"

// ErrActive is returned by Start while another session is running.
var ErrActive = errors.New("profiling session already active")

// Options names the output file of each profile. Empty names are skipped.
type Options struct {
	CPU       string // Streamed from Start to Stop
	Heap      string // Live allocations at Stop
	Goroutine string // Goroutine stacks at Stop
	Block     string // Blocking events; enables block profiling at Start
	Mutex     string // Mutex contention; enables mutex profiling at Start
}

// Empty reports whether no profile was requested.
func (o Options) Empty() bool {
	return o == Options{}
}
