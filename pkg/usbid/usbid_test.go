package usbid

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `# usb.ids excerpt
#
1cbe  Luminary Micro Inc.
	0002  CDC serial
	0003  Generic Bulk Device
1d6b  Linux Foundation
	0002  2.0 root hub
zzzz  not a vendor
	0001  orphan product

# class table
C 00  (Defined at Interface level)
	01  Audio
`

func TestLoadFrom(t *testing.T) {
	db := NewWithPaths(nil)
	require.NoError(t, db.LoadFrom(strings.NewReader(fixture)))

	vendor, product := db.Lookup(0x1CBE, 0x0003)
	assert.Equal(t, "Luminary Micro Inc.", vendor)
	assert.Equal(t, "Generic Bulk Device", product)

	vendor, product = db.Lookup(0x1D6B, 0x0003)
	assert.Equal(t, "Linux Foundation", vendor)
	assert.Empty(t, product)

	vendors, products := db.Len()
	assert.Equal(t, 2, vendors)
	assert.Equal(t, 3, products)
	assert.True(t, db.IsLoaded())
}

func TestLoadFromNil(t *testing.T) {
	assert.Error(t, New().LoadFrom(nil))
}

func TestLookupUnloaded(t *testing.T) {
	db := New()
	vendor, product := db.Lookup(0x1CBE, 0x0003)
	assert.Empty(t, vendor)
	assert.Empty(t, product)
	assert.False(t, db.IsLoaded())
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usb.ids")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o644))

	db := NewWithPaths([]string{filepath.Join(dir, "missing"), path})
	assert.True(t, db.Load())
	assert.True(t, db.Load())
	assert.Equal(t, "Linux Foundation", db.LookupVendor(0x1D6B))
}

func TestLoadNotFound(t *testing.T) {
	db := NewWithPaths([]string{"/nonexistent/usb.ids"})
	assert.False(t, db.Load())
	assert.True(t, db.IsLoaded())
	assert.False(t, db.Load())
}

func TestEntry(t *testing.T) {
	tests := []struct {
		in   string
		id   uint16
		name string
		ok   bool
	}{
		{"1cbe  Luminary", 0x1CBE, "Luminary", true},
		{"ABCD  upper", 0xABCD, "upper", true},
		{"1cbe", 0, "", false},
		{"1cbe\tname", 0, "", false},
		{"g123  bad", 0, "", false},
		{"1234      ", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, name, ok := entry(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestConcurrentLookup(t *testing.T) {
	db := NewWithPaths(nil)
	require.NoError(t, db.LoadFrom(strings.NewReader(fixture)))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				v, _ := db.Lookup(0x1CBE, 0x0002)
				assert.Equal(t, "Luminary Micro Inc.", v)
			}
		}()
	}
	wg.Wait()
}
