// Package rpcpool provides a failover RPC client over multiple Solana
// endpoints, plus the websocket push channel. It implements
// txengine.ChainClient.
package rpcpool

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/fomolt3d/txkit/internal/txengine"
)

const connectTimeout = 15 * time.Second

// Client is the production chain boundary.
type Client struct {
	pool       *Pool
	commitment rpc.CommitmentType
	wsURL      string
	logger     *zap.Logger

	wsMu     sync.Mutex
	wsClient *ws.Client
}

// New validates the endpoints, probes each one, and returns a pooled client.
// wsURL may be empty; the engine then runs poll-only confirmation.
func New(ctx context.Context, endpoints []string, wsURL string, commitment rpc.CommitmentType, logger *zap.Logger) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	var nodes []*Node
	for _, endpoint := range endpoints {
		if _, err := url.Parse(endpoint); err != nil {
			logger.Warn("skipping invalid RPC URL", zap.String("url", endpoint), zap.Error(err))
			continue
		}
		nodes = append(nodes, newNode(endpoint))
	}
	if len(nodes) == 0 {
		return nil, ErrNoEndpoints
	}

	c := &Client{
		pool:       NewPool(nodes, logger),
		commitment: commitment,
		wsURL:      wsURL,
		logger:     logger.Named("rpc-client"),
	}
	if err := c.probeNodes(ctx, nodes); err != nil {
		return nil, err
	}
	return c, nil
}

// probeNodes checks every endpoint concurrently; startup fails only when no
// node answers.
func (c *Client) probeNodes(ctx context.Context, nodes []*Node) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, node := range nodes {
		wg.Add(1)
		go func(n *Node) {
			defer wg.Done()
			start := time.Now()
			version, err := n.Client.GetVersion(ctx)
			n.UpdateMetrics(err == nil, time.Since(start))
			if err != nil {
				c.logger.Warn("endpoint probe failed",
					zap.String("url", n.URL), zap.Error(err))
				n.SetActive(false)
				return
			}
			c.logger.Debug("endpoint ready",
				zap.String("url", n.URL),
				zap.String("solana_core", version.SolanaCore))
		}(node)
	}
	wg.Wait()

	if !c.pool.HasActive() {
		return ErrNoActiveNodes
	}
	return nil
}

func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	var hash solana.Hash
	var lastValid uint64
	err := c.pool.Execute(ctx, "getLatestBlockhash", func(n *Node) error {
		result, err := n.Client.GetLatestBlockhash(ctx, c.commitment)
		if err != nil {
			return err
		}
		hash = result.Value.Blockhash
		lastValid = result.Value.LastValidBlockHeight
		return nil
	})
	return hash, lastValid, err
}

func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.pool.Execute(ctx, "getBlockHeight", func(n *Node) error {
		h, err := n.Client.GetBlockHeight(ctx, c.commitment)
		if err != nil {
			return err
		}
		height = h
		return nil
	})
	return height, err
}

func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResult, error) {
	var value *rpc.SimulateTransactionResult
	err := c.pool.Execute(ctx, "simulateTransaction", func(n *Node) error {
		resp, err := n.Client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
			SigVerify:              false,
			Commitment:             c.commitment,
			ReplaceRecentBlockhash: true,
		})
		if err != nil {
			return err
		}
		if resp == nil || resp.Value == nil {
			return fmt.Errorf("empty simulation response")
		}
		value = resp.Value
		return nil
	})
	return value, err
}

func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction, opts txengine.SubmitOptions) (solana.Signature, error) {
	// The engine owns the retry budget; the node must not resend on its own.
	nodeRetries := uint(0)
	var sig solana.Signature
	err := c.pool.Execute(ctx, "sendTransaction", func(n *Node) error {
		s, err := n.Client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
			MaxRetries:          &nodeRetries,
		})
		if err != nil {
			return err
		}
		sig = s
		return nil
	})
	return sig, err
}

func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature, searchHistory bool) (*rpc.SignatureStatusesResult, error) {
	var status *rpc.SignatureStatusesResult
	err := c.pool.Execute(ctx, "getSignatureStatuses", func(n *Node) error {
		resp, err := n.Client.GetSignatureStatuses(ctx, searchHistory, sig)
		if err != nil {
			return err
		}
		if resp == nil || len(resp.Value) == 0 {
			status = nil
			return nil
		}
		status = resp.Value[0]
		return nil
	})
	return status, err
}

func (c *Client) RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]rpc.PriorizationFeeResult, error) {
	var fees []rpc.PriorizationFeeResult
	err := c.pool.Execute(ctx, "getRecentPrioritizationFees", func(n *Node) error {
		result, err := n.Client.GetRecentPrioritizationFees(ctx, accounts)
		if err != nil {
			return err
		}
		fees = result
		return nil
	})
	return fees, err
}
