package txengine

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is bounded by block time; no backoff needed.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultConfirmTimeout is the wall-clock ceiling on one confirmation
	// wait, independent of block-height expiry. Network partitions would
	// otherwise hang the poll loop forever.
	DefaultConfirmTimeout = 90 * time.Second

	// heightCheckEvery spaces the block-height queries out to every Nth
	// poll tick.
	heightCheckEvery = 2
)

// ConfirmationStatus is the confirmation state machine's state.
type ConfirmationStatus int

const (
	StatusSubmitted ConfirmationStatus = iota
	StatusProcessed
	StatusConfirmed
	StatusFinalized
	StatusFailed

	// StatusExpired means no terminal status was observed before the
	// blockhash's expiry height or the wall-clock ceiling. The fate of the
	// transaction is genuinely unknown: it must be re-queried with
	// search-history before being treated as failed or resent.
	StatusExpired

	// StatusCancelled marks a deliberate caller cancellation. Not
	// retryable and not a failure.
	StatusCancelled
)

func (s ConfirmationStatus) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusProcessed:
		return "processed"
	case StatusConfirmed:
		return "confirmed"
	case StatusFinalized:
		return "finalized"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Reached reports whether the status satisfies the target commitment.
func (s ConfirmationStatus) Reached(target rpc.CommitmentType) bool {
	var rank int
	switch s {
	case StatusProcessed:
		rank = 1
	case StatusConfirmed:
		rank = 2
	case StatusFinalized:
		rank = 3
	default:
		return false
	}
	return rank >= commitmentRank(target)
}

// Confirmation is the terminal observation for one signature.
type Confirmation struct {
	Signature solana.Signature
	Status    ConfirmationStatus
	Slot      uint64
	Err       *ClassifiedError
}

// ConfirmationConfig tunes the engine. Zero values take the defaults above.
type ConfirmationConfig struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

func (c ConfirmationConfig) withDefaults() ConfirmationConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfirmTimeout
	}
	return c
}

// ConfirmationEngine resolves a submitted signature to a terminal status by
// racing a push subscription against a poll loop. The first terminal
// observation wins and the losing channel is torn down before Await returns.
type ConfirmationEngine struct {
	client  ChainClient
	cache   *BlockhashCache
	cfg     ConfirmationConfig
	decoder ErrorDecoder
	logger  *zap.Logger
	metrics *Metrics
}

func NewConfirmationEngine(client ChainClient, cache *BlockhashCache, cfg ConfirmationConfig, decoder ErrorDecoder, logger *zap.Logger, metrics *Metrics) *ConfirmationEngine {
	return &ConfirmationEngine{
		client:  client,
		cache:   cache,
		cfg:     cfg.withDefaults(),
		decoder: decoder,
		logger:  logger.Named("confirmation"),
		metrics: metrics,
	}
}

// Await blocks until sig reaches target commitment, fails, expires past the
// record's last valid block height, hits the wall-clock ceiling, or ctx is
// cancelled. It always returns a Confirmation; both channels are released
// before it does.
func (e *ConfirmationEngine) Await(ctx context.Context, sig solana.Signature, record BlockhashRecord, target rpc.CommitmentType) *Confirmation {
	start := time.Now()
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *Confirmation, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.watchPush(waitCtx, sig, target, results)
	}()
	go func() {
		defer wg.Done()
		e.pollStatus(waitCtx, sig, record, target, results)
	}()

	timeout := time.NewTimer(e.cfg.Timeout)
	defer timeout.Stop()

	var conf *Confirmation
	select {
	case conf = <-results:
	case <-timeout.C:
		// Ceiling hit with no observation: fate unknown, not a failure.
		conf = &Confirmation{Signature: sig, Status: StatusExpired}
	case <-ctx.Done():
		conf = &Confirmation{Signature: sig, Status: StatusCancelled}
	}

	cancel()
	wg.Wait()

	e.metrics.ObserveConfirmation(conf.Status, start)
	e.logger.Info("confirmation resolved",
		zap.String("signature", sig.String()),
		zap.String("status", conf.Status.String()),
		zap.Duration("elapsed", time.Since(start)))
	return conf
}

// Verify re-queries sig with search-history. Used after an Expired result to
// rule out a false negative before any resubmission. A nil Confirmation
// means the signature was not found anywhere and a resend is safe.
func (e *ConfirmationEngine) Verify(ctx context.Context, sig solana.Signature) (*Confirmation, error) {
	status, err := e.client.SignatureStatus(ctx, sig, true)
	if err != nil {
		return nil, err
	}
	if status == nil {
		return nil, nil
	}
	conf := &Confirmation{Signature: sig, Slot: status.Slot}
	if status.Err != nil {
		conf.Status = StatusFailed
		conf.Err = ClassifyProgramError(status.Err, nil, e.decoder)
		return conf, nil
	}
	conf.Status = statusFromConfirmation(status.ConfirmationStatus)
	return conf, nil
}

func (e *ConfirmationEngine) watchPush(ctx context.Context, sig solana.Signature, target rpc.CommitmentType, results chan<- *Confirmation) {
	sub, err := e.client.SubscribeSignature(ctx, sig, target)
	if err != nil {
		// Poll channel covers for a missing push channel.
		e.logger.Debug("push subscription unavailable", zap.Error(err))
		return
	}
	defer sub.Unsubscribe()

	txErr, err := sub.Recv(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Debug("push subscription closed", zap.Error(err))
		}
		return
	}

	conf := &Confirmation{Signature: sig, Status: statusForTarget(target)}
	if txErr != nil {
		conf.Status = StatusFailed
		conf.Err = ClassifyProgramError(txErr, nil, e.decoder)
	}
	e.emit(ctx, results, conf)
}

func (e *ConfirmationEngine) pollStatus(ctx context.Context, sig solana.Signature, record BlockhashRecord, target rpc.CommitmentType, results chan<- *Confirmation) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		tick++

		status, err := e.client.SignatureStatus(ctx, sig, false)
		if err != nil {
			e.logger.Warn("status poll failed", zap.Error(err))
			continue
		}
		if status != nil {
			if status.Err != nil {
				e.emit(ctx, results, &Confirmation{
					Signature: sig,
					Status:    StatusFailed,
					Slot:      status.Slot,
					Err:       ClassifyProgramError(status.Err, nil, e.decoder),
				})
				return
			}
			if observed := statusFromConfirmation(status.ConfirmationStatus); observed.Reached(target) {
				e.emit(ctx, results, &Confirmation{
					Signature: sig,
					Status:    observed,
					Slot:      status.Slot,
				})
				return
			}
		}

		if tick%heightCheckEvery != 0 {
			continue
		}
		height, err := e.client.BlockHeight(ctx)
		if err != nil {
			e.logger.Warn("height check failed", zap.Error(err))
			continue
		}
		if e.cache != nil {
			e.cache.ObserveHeight(height)
		}
		if height > record.LastValidBlockHeight {
			e.emit(ctx, results, &Confirmation{Signature: sig, Status: StatusExpired})
			return
		}
	}
}

func (e *ConfirmationEngine) emit(ctx context.Context, results chan<- *Confirmation, conf *Confirmation) {
	select {
	case results <- conf:
	case <-ctx.Done():
	}
}

func statusForTarget(target rpc.CommitmentType) ConfirmationStatus {
	switch target {
	case rpc.CommitmentProcessed:
		return StatusProcessed
	case rpc.CommitmentFinalized:
		return StatusFinalized
	default:
		return StatusConfirmed
	}
}

func statusFromConfirmation(s rpc.ConfirmationStatusType) ConfirmationStatus {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return StatusProcessed
	case rpc.ConfirmationStatusConfirmed:
		return StatusConfirmed
	case rpc.ConfirmationStatusFinalized:
		return StatusFinalized
	default:
		return StatusSubmitted
	}
}
