package txengine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Submitter performs one-shot sends of signed transactions. Retrying is the
// RetryController's job, not the Submitter's.
type Submitter struct {
	client    ChainClient
	validator *Validator
	logger    *zap.Logger
	metrics   *Metrics
}

func NewSubmitter(client ChainClient, validator *Validator, logger *zap.Logger, metrics *Metrics) *Submitter {
	return &Submitter{
		client:    client,
		validator: validator,
		logger:    logger.Named("submitter"),
		metrics:   metrics,
	}
}

// Submit transmits tx. opts.SkipPreflight should only be set when the caller
// already simulated the transaction; the zero value keeps preflight on.
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction, opts SubmitOptions) (solana.Signature, error) {
	if err := s.validator.ValidateSigned(tx); err != nil {
		return solana.Signature{}, err
	}
	if opts.PreflightCommitment == "" {
		opts.PreflightCommitment = rpc.CommitmentConfirmed
	}

	sig, err := s.client.SendTransaction(ctx, tx, opts)
	if err != nil {
		s.metrics.SendFailed()
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	s.metrics.SendSucceeded()
	s.logger.Info("transaction sent",
		zap.String("signature", sig.String()),
		zap.Bool("skip_preflight", opts.SkipPreflight))
	return sig, nil
}
