// Package ws carries link frames over WebSocket.
//
// The device side serves HTTP upgrades on a path (default "/bulk") and
// exchanges one binary message per frame. Idle connections are pinged
// every 20 seconds.
package ws
