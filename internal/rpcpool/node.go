package rpcpool

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

// Node is one RPC endpoint with its health flag and rolling stats.
type Node struct {
	Client *rpc.Client
	URL    string

	mu          sync.RWMutex
	active      bool
	requests    uint64
	failures    uint64
	lastLatency time.Duration
	lastFailure time.Time
}

func newNode(url string) *Node {
	return &Node{
		Client: rpc.New(url),
		URL:    url,
		active: true,
	}
}

func (n *Node) IsActive() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

func (n *Node) SetActive(active bool) {
	n.mu.Lock()
	n.active = active
	n.mu.Unlock()
}

// UpdateMetrics records one request's outcome and latency.
func (n *Node) UpdateMetrics(success bool, latency time.Duration) {
	n.mu.Lock()
	n.requests++
	n.lastLatency = latency
	if !success {
		n.failures++
		n.lastFailure = time.Now()
	}
	n.mu.Unlock()
}

// Stats returns request and failure counts for logging.
func (n *Node) Stats() (requests, failures uint64, lastLatency time.Duration) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.requests, n.failures, n.lastLatency
}
