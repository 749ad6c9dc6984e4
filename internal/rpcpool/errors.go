package rpcpool

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveNodes means every endpoint in the pool is marked down.
	ErrNoActiveNodes = errors.New("no active RPC nodes available")

	// ErrNoEndpoints rejects an empty endpoint list at construction.
	ErrNoEndpoints = errors.New("empty RPC endpoint list")

	// ErrNoWebSocket means no websocket endpoint was configured.
	ErrNoWebSocket = errors.New("no websocket endpoint configured")
)

// Error wraps an RPC failure with the node and method that produced it.
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc %s at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapError(err error, nodeURL, method string) error {
	return &Error{Err: err, NodeURL: nodeURL, Method: method}
}
