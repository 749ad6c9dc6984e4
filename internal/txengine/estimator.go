package txengine

import (
	"context"
	"math"
	"sort"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

const (
	// MaxComputeUnits is the protocol's per-transaction ceiling.
	MaxComputeUnits uint32 = 1_400_000

	// DefaultComputeUnits is the conservative fallback when estimation
	// cannot run.
	DefaultComputeUnits uint32 = 200_000

	// DefaultUnitPriceMicroLamports is used when no fee samples are
	// available.
	DefaultUnitPriceMicroLamports uint64 = 5_000

	// highUsageThreshold switches the headroom multiplier from 1.2x to
	// 1.3x; heavy transactions get more slack against state drift.
	highUsageThreshold uint64 = 500_000
)

// ComputeEstimator derives a ComputeBudget by probing a transaction under
// the protocol-maximum unit ceiling and reading back the consumed units.
// Estimation never blocks submission: every failure path degrades to the
// conservative default.
type ComputeEstimator struct {
	client    ChainClient
	simulator *Simulator
	logger    *zap.Logger
}

func NewComputeEstimator(client ChainClient, simulator *Simulator, logger *zap.Logger) *ComputeEstimator {
	return &ComputeEstimator{
		client:    client,
		simulator: simulator,
		logger:    logger.Named("compute-estimator"),
	}
}

// Estimate returns a budget for instructions paid by payer. overrideMicro,
// when non-zero, pins the unit price and skips fee sampling.
func (e *ComputeEstimator) Estimate(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey, priority PriorityLevel, overrideMicro uint64) ComputeBudget {
	budget := ComputeBudget{
		UnitLimit:              e.estimateUnits(ctx, instructions, payer),
		UnitPriceMicroLamports: overrideMicro,
	}
	if budget.UnitPriceMicroLamports == 0 {
		budget.UnitPriceMicroLamports = e.estimatePrice(ctx, instructions, priority)
	}
	return budget
}

func (e *ComputeEstimator) estimateUnits(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey) uint32 {
	probe, err := NewTransactionBuilder().Build(
		instructions,
		ComputeBudget{UnitLimit: MaxComputeUnits},
		BlockhashRecord{}, // simulation replaces the blockhash server-side
		payer,
	)
	if err != nil {
		e.logger.Warn("probe build failed, using default unit limit", zap.Error(err))
		return DefaultComputeUnits
	}

	result, err := e.simulator.Simulate(ctx, probe)
	if err != nil || !result.Ok || result.UnitsConsumed == nil || *result.UnitsConsumed == 0 {
		e.logger.Debug("probe simulation unusable, using default unit limit",
			zap.Error(err))
		return DefaultComputeUnits
	}

	consumed := *result.UnitsConsumed
	multiplier := 1.2
	if consumed > highUsageThreshold {
		multiplier = 1.3
	}
	padded := uint64(math.Round(float64(consumed) * multiplier))
	if padded > uint64(MaxComputeUnits) {
		return MaxComputeUnits
	}
	return uint32(padded)
}

func (e *ComputeEstimator) estimatePrice(ctx context.Context, instructions []solana.Instruction, priority PriorityLevel) uint64 {
	samples, err := e.client.RecentPrioritizationFees(ctx, writableAccounts(instructions))
	if err != nil {
		e.logger.Debug("fee sampling failed, using default unit price", zap.Error(err))
		return DefaultUnitPriceMicroLamports
	}

	fees := make([]uint64, 0, len(samples))
	for _, s := range samples {
		if s.PrioritizationFee > 0 {
			fees = append(fees, s.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return DefaultUnitPriceMicroLamports
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })

	idx := int(float64(len(fees)-1) * priority.Percentile())
	return fees[idx]
}

// writableAccounts collects the distinct writable accounts the instructions
// touch; fee samples for those accounts best predict contention.
func writableAccounts(instructions []solana.Instruction) []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var accounts []solana.PublicKey
	for _, ix := range instructions {
		for _, meta := range ix.Accounts() {
			if !meta.IsWritable {
				continue
			}
			if _, ok := seen[meta.PublicKey]; ok {
				continue
			}
			seen[meta.PublicKey] = struct{}{}
			accounts = append(accounts, meta.PublicKey)
		}
	}
	return accounts
}
