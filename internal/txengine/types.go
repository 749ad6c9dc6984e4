// Package txengine implements the transaction submission pipeline: blockhash
// caching, simulation, compute estimation, building, sending, dual-channel
// confirmation and retry control, orchestrated by a lifecycle state machine.
package txengine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ChainClient is the RPC boundary the engine consumes. internal/rpcpool
// provides the production implementation; tests substitute fakes.
type ChainClient interface {
	// LatestBlockhash returns the most recent blockhash together with the
	// last block height at which it is still valid.
	LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error)

	// BlockHeight returns the chain's current block height.
	BlockHeight(ctx context.Context) (uint64, error)

	// SimulateTransaction dry-runs tx against current state. Program-level
	// failure is reported inside the result, not as an error.
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResult, error)

	// SendTransaction transmits the signed transaction and returns its
	// signature.
	SendTransaction(ctx context.Context, tx *solana.Transaction, opts SubmitOptions) (solana.Signature, error)

	// SignatureStatus looks up the status of sig. searchHistory extends the
	// lookup past the recent-status cache into the ledger history.
	SignatureStatus(ctx context.Context, sig solana.Signature, searchHistory bool) (*rpc.SignatureStatusesResult, error)

	// RecentPrioritizationFees returns recent per-account priority fee
	// samples for the given writable accounts.
	RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]rpc.PriorizationFeeResult, error)

	// SubscribeSignature opens a push subscription that resolves once sig
	// reaches the given commitment. The caller owns the returned handle and
	// must Unsubscribe on every exit path.
	SubscribeSignature(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (SignatureSubscription, error)
}

// SignatureSubscription is an owned handle to one push subscription.
type SignatureSubscription interface {
	// Recv blocks until the subscription fires or ctx ends. A non-nil
	// txErr carries the on-chain error of a failed transaction.
	Recv(ctx context.Context) (txErr interface{}, err error)
	Unsubscribe()
}

// Signer is the external signing boundary. Sign may block indefinitely while
// a human approves; a declined request returns ErrUserRejected.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, tx *solana.Transaction) error
}

// BlockhashRecord is one fetched blockhash with its validity bounds.
type BlockhashRecord struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
	FetchedAt            time.Time
}

// ComputeBudget is the unit ceiling and priority price for one attempt.
// Recomputed per attempt, never mutated.
type ComputeBudget struct {
	UnitLimit              uint32
	UnitPriceMicroLamports uint64
}

// SimulationResult is the outcome of one dry-run execution.
type SimulationResult struct {
	Ok            bool
	Logs          []string
	UnitsConsumed *uint64
	Err           interface{} // raw program-level error, nil when Ok
}

// SubmitOptions controls one send attempt. SkipPreflight is only safe when
// the caller already simulated the transaction.
type SubmitOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// AttemptRecord is one entry in a submission's audit trail.
type AttemptRecord struct {
	Attempt   int
	Blockhash solana.Hash
	Signature solana.Signature
	Err       *ClassifiedError
}

// PriorityLevel selects the prioritization-fee percentile.
type PriorityLevel string

const (
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// Percentile returns the fee-sample percentile for the level.
func (p PriorityLevel) Percentile() float64 {
	switch p {
	case PriorityLow:
		return 0.25
	case PriorityHigh:
		return 0.75
	case PriorityExtreme:
		return 0.9
	default:
		return 0.5
	}
}

// commitmentRank orders commitment levels so "at or above target" checks can
// compare them.
func commitmentRank(c rpc.CommitmentType) int {
	switch c {
	case rpc.CommitmentProcessed:
		return 1
	case rpc.CommitmentConfirmed:
		return 2
	case rpc.CommitmentFinalized:
		return 3
	default:
		return 0
	}
}
