// Package framed adapts any frame connection into the link HALs.
//
// [Device] implements hal.DeviceHAL on top of an [Acceptor]: it serves one
// host [Conn] at a time, sends the published descriptor when a host
// attaches, routes bus frames to WaitBusEvent and queues data frames per
// OUT endpoint. [Host] implements hal.HostHAL over a [Dialer].
//
// Transport packages supply the Acceptor and Dialer. [StreamConn] frames a
// byte stream; [Pipe] links both ends in one process for tests.
package framed
