package rpcpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	maxFailoverAttempts = 3
	failoverDelay       = 100 * time.Millisecond
	reviveAfter         = 30 * time.Second
)

// Pool rotates requests across RPC nodes round-robin, skipping nodes marked
// down. A node that failed is retried again after reviveAfter so a single
// hiccup does not retire an endpoint forever.
type Pool struct {
	mu      sync.Mutex
	nodes   []*Node
	current int
	logger  *zap.Logger
}

func NewPool(nodes []*Node, logger *zap.Logger) *Pool {
	return &Pool{
		nodes:  nodes,
		logger: logger.Named("rpc-pool"),
	}
}

// Next returns the next active node, reviving stale-down nodes on the way.
func (p *Pool) Next() *Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	initial := p.current
	for {
		p.current = (p.current + 1) % len(p.nodes)
		node := p.nodes[p.current]
		if !node.IsActive() {
			node.mu.Lock()
			if time.Since(node.lastFailure) > reviveAfter {
				node.active = true
			}
			node.mu.Unlock()
		}
		if node.IsActive() {
			return node
		}
		if p.current == initial {
			return nil
		}
	}
}

// HasActive reports whether any node is usable.
func (p *Pool) HasActive() bool {
	for _, node := range p.nodes {
		if node.IsActive() {
			return true
		}
	}
	return false
}

// Execute runs op against the pool, failing over to the next node on error.
func (p *Pool) Execute(ctx context.Context, method string, op func(*Node) error) error {
	var lastErr error
	for attempt := 0; attempt < maxFailoverAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		node := p.Next()
		if node == nil {
			return ErrNoActiveNodes
		}

		start := time.Now()
		err := op(node)
		node.UpdateMetrics(err == nil, time.Since(start))
		if err == nil {
			return nil
		}

		lastErr = wrapError(err, node.URL, method)
		node.SetActive(false)
		p.logger.Warn("node failed, rotating",
			zap.String("method", method),
			zap.String("url", node.URL),
			zap.Error(err))

		select {
		case <-time.After(failoverDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
