package txengine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Simulator dry-runs transactions. The RPC side runs with signature
// verification off and the blockhash replaced server-side, so callers can
// probe unsigned transactions without worrying about staleness.
type Simulator struct {
	client ChainClient
	logger *zap.Logger
}

func NewSimulator(client ChainClient, logger *zap.Logger) *Simulator {
	return &Simulator{
		client: client,
		logger: logger.Named("simulator"),
	}
}

// Simulate executes tx hypothetically. A program-level failure is carried in
// the result; only transport/RPC failures return an error.
func (s *Simulator) Simulate(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	value, err := s.client.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	if value == nil {
		return nil, fmt.Errorf("simulate transaction: empty response")
	}

	result := &SimulationResult{
		Ok:            value.Err == nil,
		Logs:          value.Logs,
		UnitsConsumed: value.UnitsConsumed,
		Err:           value.Err,
	}
	if !result.Ok {
		s.logger.Debug("simulation reported program failure",
			zap.Any("err", value.Err),
			zap.Int("log_lines", len(value.Logs)))
	}
	return result, nil
}
