package txengine

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Request describes one logical submission.
type Request struct {
	Instructions             []solana.Instruction
	Signer                   Signer
	Commitment               rpc.CommitmentType
	Priority                 PriorityLevel
	PriorityFeeMicroLamports uint64 // explicit price override, 0 = sample the network
	SkipSimulation           bool   // skip the pre-submission gate
	Callbacks                Callbacks
}

// Config tunes the engine. Zero values take component defaults.
type Config struct {
	FreshnessWindow time.Duration
	Confirmation    ConfirmationConfig
	Retry           RetryConfig
	Commitment      rpc.CommitmentType
	Priority        PriorityLevel
	Decoder         ErrorDecoder
	Registerer      prometheus.Registerer
}

// Engine wires the cache, simulator, estimator, builder, submitter,
// confirmation engine and retry controller into one pipeline. Submissions
// are independent; concurrent Submit calls share only the blockhash cache.
type Engine struct {
	client    ChainClient
	cache     *BlockhashCache
	simulator *Simulator
	estimator *ComputeEstimator
	builder   *TransactionBuilder
	validator *Validator
	retry     *RetryController
	cfg       Config
	logger    *zap.Logger
}

func NewEngine(client ChainClient, cfg Config, logger *zap.Logger) *Engine {
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.Priority == "" {
		cfg.Priority = PriorityMedium
	}
	metrics := NewMetrics(cfg.Registerer)
	cache := NewBlockhashCache(client, cfg.FreshnessWindow, logger)
	simulator := NewSimulator(client, logger)
	estimator := NewComputeEstimator(client, simulator, logger)
	builder := NewTransactionBuilder()
	validator := NewValidator(logger)
	submitter := NewSubmitter(client, validator, logger, metrics)
	confirmer := NewConfirmationEngine(client, cache, cfg.Confirmation, cfg.Decoder, logger, metrics)

	return &Engine{
		client:    client,
		cache:     cache,
		simulator: simulator,
		estimator: estimator,
		builder:   builder,
		validator: validator,
		retry:     NewRetryController(cache, estimator, builder, submitter, confirmer, cfg.Retry, cfg.Decoder, logger, metrics),
		cfg:       cfg,
		logger:    logger.Named("engine"),
	}
}

// Submit runs one logical submission end to end and blocks until a terminal
// outcome. Progress is reported through req.Callbacks; the returned Result
// carries the audit trail either way.
func (e *Engine) Submit(ctx context.Context, req Request) (*Result, error) {
	if req.Commitment == "" {
		req.Commitment = e.cfg.Commitment
	}
	if req.Priority == "" {
		req.Priority = e.cfg.Priority
	}

	lc := NewLifecycle(req.Callbacks, e.logger)
	lc.Transition(StateValidating)
	if err := e.validator.ValidateInstructions(req.Instructions); err != nil {
		cerr := &ClassifiedError{Tag: TagProgramError, Err: err}
		lc.Fail(cerr)
		return nil, cerr
	}

	lc.Transition(StateSimulating)
	budget := e.estimator.Estimate(ctx, req.Instructions, req.Signer.PublicKey(), req.Priority, req.PriorityFeeMicroLamports)

	simulated := false
	if !req.SkipSimulation {
		ok, cerr := e.preflight(ctx, req, budget)
		if cerr != nil {
			lc.Fail(cerr)
			return nil, cerr
		}
		simulated = ok
	}

	// Preflight on the node is redundant once we simulated ourselves.
	opts := SubmitOptions{
		SkipPreflight:       simulated,
		PreflightCommitment: req.Commitment,
	}
	return e.retry.Execute(ctx, req, lc, budget, opts)
}

// preflight runs the client-side simulation gate. A program failure stops
// the submission; a transport failure only disables skip-preflight so the
// node re-checks at send time.
func (e *Engine) preflight(ctx context.Context, req Request, budget ComputeBudget) (bool, *ClassifiedError) {
	rec, err := e.cache.Get(ctx)
	if err != nil {
		return false, Classify(err, e.cfg.Decoder)
	}
	tx, err := e.builder.Build(req.Instructions, budget, rec, req.Signer.PublicKey())
	if err != nil {
		return false, &ClassifiedError{Tag: TagProgramError, Err: err}
	}
	sim, err := e.simulator.Simulate(ctx, tx)
	if err != nil {
		e.logger.Warn("preflight simulation unavailable", zap.Error(err))
		return false, nil
	}
	if !sim.Ok {
		return false, ClassifyProgramError(sim.Err, sim.Logs, e.cfg.Decoder)
	}
	return true, nil
}

// Cache exposes the shared blockhash cache, mainly for height observation by
// callers that track slots themselves.
func (e *Engine) Cache() *BlockhashCache { return e.cache }
