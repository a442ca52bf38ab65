//go:build profile

package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/ardnew/softbulk/pkg"
)

// Enabled reports whether profiling is compiled in.
const Enabled = true

var (
	mutex  sync.Mutex
	active bool
)

// Session is a running profiling session.
type Session struct {
	opts Options
	cpu  *os.File
	once sync.Once
	err  error
}

// Start begins a session. The CPU profile, if requested, starts now.
func Start(opts Options) (*Session, error) {
	mutex.Lock()
	defer mutex.Unlock()

	if active {
		return nil, ErrActive
	}

	s := &Session{opts: opts}
	if opts.CPU != "" {
		f, err := os.Create(opts.CPU)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, err
		}
		s.cpu = f
	}
	if opts.Block != "" {
		runtime.SetBlockProfileRate(1)
	}
	if opts.Mutex != "" {
		runtime.SetMutexProfileFraction(1)
	}

	active = true
	pkg.LogInfo(pkg.ComponentDevice, "profiling started", "cpu", opts.CPU)
	return s, nil
}

// Stop ends the CPU profile and writes the snapshot profiles. Only the
// first call does any work; later calls return the same error.
func (s *Session) Stop() error {
	s.once.Do(func() {
		mutex.Lock()
		defer mutex.Unlock()

		var errs []error
		if s.cpu != nil {
			pprof.StopCPUProfile()
			errs = append(errs, s.cpu.Close())
		}
		for _, snap := range []struct{ name, path string }{
			{"heap", s.opts.Heap},
			{"goroutine", s.opts.Goroutine},
			{"block", s.opts.Block},
			{"mutex", s.opts.Mutex},
		} {
			if snap.path != "" {
				errs = append(errs, write(snap.name, snap.path))
			}
		}
		if s.opts.Block != "" {
			runtime.SetBlockProfileRate(0)
		}
		if s.opts.Mutex != "" {
			runtime.SetMutexProfileFraction(0)
		}

		active = false
		s.err = errors.Join(errs...)
		pkg.LogInfo(pkg.ComponentDevice, "profiling stopped", "error", s.err)
	})
	return s.err
}

// write saves the named snapshot profile to path.
func write(name, path string) error {
	p := pprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("unknown profile %q", name)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := p.WriteTo(f, 0); err != nil {
		return fmt.Errorf("write %s profile: %w", name, err)
	}
	return nil
}
