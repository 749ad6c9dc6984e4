package rpcpool

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"

	"github.com/fomolt3d/txkit/internal/txengine"
)

// SubscribeSignature opens one signature-status push subscription. The
// websocket connection is dialed lazily on first use and shared afterwards;
// each subscription is still an independently owned handle.
func (c *Client) SubscribeSignature(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (txengine.SignatureSubscription, error) {
	wsClient, err := c.websocket(ctx)
	if err != nil {
		return nil, err
	}
	sub, err := wsClient.SignatureSubscribe(sig, commitment)
	if err != nil {
		return nil, fmt.Errorf("signature subscribe: %w", err)
	}
	return &signatureSubscription{sub: sub}, nil
}

func (c *Client) websocket(ctx context.Context) (*ws.Client, error) {
	if c.wsURL == "" {
		return nil, ErrNoWebSocket
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.wsClient != nil {
		return c.wsClient, nil
	}

	wsClient, err := ws.Connect(ctx, c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	c.logger.Debug("websocket connected", zap.String("url", c.wsURL))
	c.wsClient = wsClient
	return wsClient, nil
}

// Close tears down the shared websocket connection.
func (c *Client) Close() {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
}

type signatureSubscription struct {
	sub *ws.SignatureSubscription
}

func (s *signatureSubscription) Recv(ctx context.Context) (interface{}, error) {
	result, err := s.sub.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("empty signature notification")
	}
	return result.Value.Err, nil
}

func (s *signatureSubscription) Unsubscribe() {
	s.sub.Unsubscribe()
}
