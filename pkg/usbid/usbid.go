package usbid

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ardnew/softbulk/pkg"
)

// DefaultPaths lists the standard locations of usb.ids.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Database caches vendor and product names.
type Database struct {
	mu       sync.RWMutex
	paths    []string
	loaded   bool
	vendors  map[uint16]string
	products map[uint32]string // vid<<16 | pid
}

// New returns a database that searches DefaultPaths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths returns a database that searches paths in order.
func NewWithPaths(paths []string) *Database {
	return &Database{
		paths:    paths,
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}
}

// Load reads the first database file found on the search path. Only the
// first call does any work. It reports whether a file was read.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return len(db.vendors) > 0
	}
	db.loaded = true

	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.parse(f)
		f.Close()
		if err != nil {
			pkg.LogWarn(pkg.ComponentHost, "usb.ids parse failed",
				"path", path, "error", err)
			continue
		}
		pkg.LogDebug(pkg.ComponentHost, "usb.ids loaded",
			"path", path, "vendors", len(db.vendors))
		return true
	}
	return false
}

// LoadFrom parses a database from r, merging it with any entries already
// present.
func (db *Database) LoadFrom(r io.Reader) error {
	if r == nil {
		return errors.Join(pkg.ErrInvalidParameter, errors.New("nil reader"))
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.loaded = true
	return db.parse(r)
}

// parse reads vendor lines ("vvvv  name") and the product lines indented
// beneath them ("\tpppp  name"). Anything else, including the class tables
// that follow the vendor list, ends the current vendor.
func (db *Database) parse(r io.Reader) error {
	var (
		vid  uint16
		have bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '\t' {
			if !have {
				continue
			}
			if id, name, ok := entry(line[1:]); ok {
				db.products[uint32(vid)<<16|uint32(id)] = name
			}
			continue
		}
		id, name, ok := entry(line)
		if !ok {
			have = false
			continue
		}
		vid, have = id, true
		db.vendors[vid] = name
	}
	return sc.Err()
}

// entry splits "xxxx  name" into its hex ID and trimmed name.
func entry(s string) (uint16, string, bool) {
	if len(s) < 6 || s[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(s[5:])
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

// Lookup returns the vendor and product names for vid and pid. Either may
// be empty when unknown.
func (db *Database) Lookup(vid, pid uint16) (vendor, product string) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid], db.products[uint32(vid)<<16|uint32(pid)]
}

// LookupVendor returns the vendor name for vid.
func (db *Database) LookupVendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// IsLoaded reports whether a load was attempted.
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// Len returns the number of vendors and products known.
func (db *Database) Len() (vendors, products int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors), len(db.products)
}
