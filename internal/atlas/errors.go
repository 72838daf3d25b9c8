// ABOUTME: Error taxonomy for the Atlas protocol client
// ABOUTME: Sentinels for state misuse plus typed connection and device errors

package atlas

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates an operation was attempted without a connection.
	ErrNotConnected = errors.New("not connected")

	// ErrTimeout indicates no response arrived within the request window.
	// The connection stays open; the caller may retry the operation.
	ErrTimeout = errors.New("request timed out")

	// ErrConnectionClosed indicates a request was aborted by Disconnect.
	ErrConnectionClosed = errors.New("connection closed")
)

// ConnectionError represents a socket-level failure. It is fatal to the
// session: every pending request is rejected with one and the caller
// must reconnect explicitly.
type ConnectionError struct {
	Op   string // "dial", "write", "read", "disconnect"
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("atlas %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("atlas %s %s failed", e.Op, e.Addr)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError carries a device-reported JSON-RPC error. The code and
// message pass through unmodified.
type CommandError struct {
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device error %d: %s", e.Code, e.Message)
}
