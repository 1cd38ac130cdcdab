// Package singleinstance lets a second invocation with --run-once hand its
// capture request to the resident window over loopback TCP.
//
// Protocol, one request per connection, newline-terminated status lines:
//
//	client: PING\n                 server: PONG\n
//	client: STDOUT\n | CLIPBOARD\n server: SUCCESS\n<text> | ERROR\n<message>
package singleinstance

import (
	"context"
)

// Server owns the TCP endpoint and answers run-once requests.
type Server interface {
	// Start binds the first port of the configured range and accepts clients.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	Request() Request
	// RespondSuccess sends success. In stdout mode text is the translation;
	// in clipboard mode it is empty.
	RespondSuccess(text string) error
	RespondError(msg string) error
	Close() error
}

// Request represents a single run-once client request.
type Request struct {
	OutputToStdout bool
}

// Client attempts to delegate run-once invocation to a resident server.
type Client interface {
	// TryRunOnce scans the port range, performs the handshake and delegates.
	// If no resident is found it returns delegated=false, err=nil.
	TryRunOnce(ctx context.Context, outputToStdout bool) (delegated bool, text string, err error)
}

// NewServer returns a TCP server on the range from the environment.
func NewServer() Server { return newTCPServer(getPortRange()) }

// NewClient returns a TCP client scanning the range from the environment.
func NewClient() Client { return newTCPClient(getPortRange()) }
