//go:build debug

package ring

// strictCommit makes an overrunning commit panic.
const strictCommit = true
