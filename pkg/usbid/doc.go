// Package usbid resolves vendor and product IDs to names using the usb.ids
// database shipped with most Linux distributions.
//
// The host example uses it to annotate the identity it reads from a device:
//
//	db := usbid.New()
//	if db.Load() {
//		vendor, product := db.Lookup(0x1CBE, 0x0003)
//	}
//
// A database may also be read from any io.Reader with LoadFrom, which is how
// the tests feed it fixtures. Lookups on an unloaded database return empty
// strings. All methods are safe for concurrent use.
package usbid
