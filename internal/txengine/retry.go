package txengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetryConfig bounds the attempt loop. MaxRetries counts total attempts.
type RetryConfig struct {
	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 10 * time.Second
	}
	return c
}

// Result is the outcome of one logical submission, with its full audit
// trail of attempts.
type Result struct {
	ID           uuid.UUID
	Signature    solana.Signature
	Confirmation *Confirmation
	Attempts     []AttemptRecord
}

// RetryController runs the attempt loop: build, sign, submit, confirm,
// classify, and either re-attempt on a strictly fresher blockhash or stop.
type RetryController struct {
	cache     *BlockhashCache
	estimator *ComputeEstimator
	builder   *TransactionBuilder
	submitter *Submitter
	confirmer *ConfirmationEngine
	cfg       RetryConfig
	decoder   ErrorDecoder
	logger    *zap.Logger
	metrics   *Metrics
}

func NewRetryController(cache *BlockhashCache, estimator *ComputeEstimator, builder *TransactionBuilder, submitter *Submitter, confirmer *ConfirmationEngine, cfg RetryConfig, decoder ErrorDecoder, logger *zap.Logger, metrics *Metrics) *RetryController {
	return &RetryController{
		cache:     cache,
		estimator: estimator,
		builder:   builder,
		submitter: submitter,
		confirmer: confirmer,
		cfg:       cfg.withDefaults(),
		decoder:   decoder,
		logger:    logger.Named("retry"),
		metrics:   metrics,
	}
}

// Execute drives attempts until terminal success, a non-retryable failure,
// or an exhausted budget. The lifecycle machine lc is advanced through the
// per-attempt states; budget is the first attempt's compute budget and is
// recomputed on every retry.
func (r *RetryController) Execute(ctx context.Context, req Request, lc *Lifecycle, budget ComputeBudget, opts SubmitOptions) (*Result, error) {
	res := &Result{ID: uuid.New()}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = r.cfg.BackoffBase
	schedule.Multiplier = 2
	schedule.RandomizationFactor = 0
	schedule.MaxInterval = r.cfg.BackoffCap
	schedule.Reset()

	var lastErr *ClassifiedError
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		rec, cerr := r.prepareAttempt(ctx, req, lc, &budget, attempt, schedule)
		if cerr != nil {
			res.Attempts = append(res.Attempts, AttemptRecord{Attempt: attempt, Err: cerr})
			if cerr.Tag == TagCancelled || cerr.Tag == TagUserRejected {
				lc.Cancel()
				r.metrics.ObserveAttempts(len(res.Attempts))
				return res, cerr
			}
			lastErr = cerr
			if !cerr.Tag.Retryable() {
				break
			}
			continue
		}

		record := AttemptRecord{Attempt: attempt, Blockhash: rec.Hash}
		sig, conf, cerr := r.runAttempt(ctx, req, lc, budget, rec, opts)
		record.Signature = sig
		record.Err = cerr
		res.Attempts = append(res.Attempts, record)

		if cerr == nil {
			res.Signature = sig
			res.Confirmation = conf
			lc.Succeed(sig)
			r.metrics.ObserveAttempts(len(res.Attempts))
			return res, nil
		}
		if cerr.Tag == TagCancelled || cerr.Tag == TagUserRejected {
			lc.Cancel()
			r.metrics.ObserveAttempts(len(res.Attempts))
			return res, cerr
		}
		lastErr = cerr
		if cerr.Tag == TagBlockhashExpired {
			r.cache.Invalidate()
		}
		if !cerr.Tag.Retryable() {
			break
		}
		r.logger.Warn("attempt failed, will retry",
			zap.Int("attempt", attempt),
			zap.String("tag", cerr.Tag.String()),
			zap.Error(cerr))
	}

	if lastErr == nil {
		lastErr = &ClassifiedError{Tag: TagUnknown, Err: ErrRetriesExhausted}
	} else if lastErr.Tag.Retryable() {
		lastErr = &ClassifiedError{
			Tag: lastErr.Tag,
			Err: fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, len(res.Attempts), lastErr.Err),
		}
	}
	lc.Fail(lastErr)
	r.metrics.ObserveAttempts(len(res.Attempts))
	return res, lastErr
}

// prepareAttempt waits out the backoff delay and produces the attempt's
// blockhash and budget. Retries always refresh: each attempt must use a
// strictly newer record than the last.
func (r *RetryController) prepareAttempt(ctx context.Context, req Request, lc *Lifecycle, budget *ComputeBudget, attempt int, schedule backoff.BackOff) (BlockhashRecord, *ClassifiedError) {
	if attempt == 1 {
		rec, err := r.cache.Get(ctx)
		if err != nil {
			return BlockhashRecord{}, Classify(err, r.decoder)
		}
		return rec, nil
	}

	delay := schedule.NextBackOff()
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return BlockhashRecord{}, Classify(ctx.Err(), r.decoder)
	}

	lc.Transition(StateSimulating)
	r.cache.Invalidate()
	rec, err := r.cache.Refresh(ctx)
	if err != nil {
		return BlockhashRecord{}, Classify(err, r.decoder)
	}
	*budget = r.estimator.Estimate(ctx, req.Instructions, req.Signer.PublicKey(), req.Priority, req.PriorityFeeMicroLamports)
	return rec, nil
}

// runAttempt executes one build-sign-send-confirm pass.
func (r *RetryController) runAttempt(ctx context.Context, req Request, lc *Lifecycle, budget ComputeBudget, rec BlockhashRecord, opts SubmitOptions) (solana.Signature, *Confirmation, *ClassifiedError) {
	tx, err := r.builder.Build(req.Instructions, budget, rec, req.Signer.PublicKey())
	if err != nil {
		return solana.Signature{}, nil, &ClassifiedError{Tag: TagProgramError, Err: err}
	}

	lc.Transition(StateAwaitingSignature)
	if err := req.Signer.Sign(ctx, tx); err != nil {
		if errors.Is(err, ErrUserRejected) {
			return solana.Signature{}, nil, &ClassifiedError{Tag: TagUserRejected, Err: err}
		}
		return solana.Signature{}, nil, Classify(err, r.decoder)
	}
	lc.Transition(StateSigning)

	lc.Transition(StateSending)
	sig, err := r.submitter.Submit(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, nil, Classify(err, r.decoder)
	}

	lc.Transition(StateConfirming)
	conf := r.confirmer.Await(ctx, sig, rec, req.Commitment)
	switch conf.Status {
	case StatusFailed:
		return sig, conf, conf.Err
	case StatusCancelled:
		return sig, conf, &ClassifiedError{Tag: TagCancelled, Err: context.Canceled}
	case StatusExpired:
		return sig, conf, r.resolveExpired(ctx, sig, req, conf)
	default:
		return sig, conf, nil
	}
}

// resolveExpired re-queries an expired signature with search-history before
// the controller is allowed to resubmit. Retrying blindly risks a
// double-send when the transaction landed right at the expiry boundary.
func (r *RetryController) resolveExpired(ctx context.Context, sig solana.Signature, req Request, conf *Confirmation) *ClassifiedError {
	verified, err := r.confirmer.Verify(ctx, sig)
	if err != nil {
		// A failed verification rules out nothing: the transaction may have
		// landed, so resending is not safe. Hand the decision back.
		r.logger.Warn("history verification failed", zap.Error(err))
		return &ClassifiedError{
			Tag: TagUnknown,
			Err: fmt.Errorf("expired and unverifiable, check signature %s explicitly: %w", sig, err),
		}
	}
	if verified == nil {
		// Not found anywhere: the send provably never landed, safe to retry.
		return &ClassifiedError{
			Tag: TagConfirmationExpired,
			Err: fmt.Errorf("blockhash expired before signature %s was observed", sig),
		}
	}
	if verified.Status == StatusFailed {
		return verified.Err
	}
	if verified.Status.Reached(req.Commitment) {
		// False negative: it landed after all.
		conf.Status = verified.Status
		conf.Slot = verified.Slot
		return nil
	}
	// Landed below target commitment: resending would double-execute, and
	// waiting further has no expiry bound. Hand the decision back.
	return &ClassifiedError{
		Tag: TagUnknown,
		Err: fmt.Errorf("signature %s landed at %s but target %s not reached, check explicitly", sig, verified.Status, req.Commitment),
	}
}
