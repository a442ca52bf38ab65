//go:build !profile

package prof

import "github.com/ardnew/softbulk/pkg"

// Enabled reports whether profiling is compiled in.
const Enabled = false

// Session is a no-op session.
type Session struct{}

// Start returns a session that records nothing.
func Start(opts Options) (*Session, error) {
	if !opts.Empty() {
		pkg.LogWarn(pkg.ComponentDevice, "profiling requested but not compiled in",
			"hint", "build with -tags profile")
	}
	return &Session{}, nil
}

// Stop does nothing.
func (*Session) Stop() error {
	return nil
}
