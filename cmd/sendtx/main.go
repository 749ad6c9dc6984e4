// Command sendtx submits one transaction through the engine and streams its
// lifecycle to stdout. Useful both as a smoke test against devnet and as a
// reference for embedding the engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/fomolt3d/txkit/internal/config"
	"github.com/fomolt3d/txkit/internal/fomolt"
	"github.com/fomolt3d/txkit/internal/logger"
	"github.com/fomolt3d/txkit/internal/rpcpool"
	"github.com/fomolt3d/txkit/internal/txengine"
	"github.com/fomolt3d/txkit/internal/wallet"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.toml", "path to config file")
		action     = flag.String("action", "transfer", "transfer | buy-keys | claim | claim-referral")
		recipient  = flag.String("to", "", "recipient for transfer")
		lamports   = flag.Uint64("lamports", 1, "lamports to transfer")
		round      = flag.Uint64("round", 1, "fomolt3d round number")
		keys       = flag.Uint64("keys", 1, "keys to buy")
		protocol   = flag.String("protocol-wallet", "", "protocol fee wallet for buy-keys")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		LogFile:     cfg.LogFile,
		Development: cfg.DebugLogging,
		MaxSizeMB:   50,
		MaxBackups:  3,
		MaxAgeDays:  14,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.ProgramID != "" {
		programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
		if err != nil {
			log.Fatal("invalid program_id", zap.Error(err))
		}
		fomolt.SetProgramID(programID)
	}

	client, err := rpcpool.New(ctx, cfg.RPCList, cfg.WebSocketURL, rpc.CommitmentType(cfg.Commitment), log)
	if err != nil {
		log.Fatal("connect RPC", zap.Error(err))
	}
	defer client.Close()

	signer, err := wallet.New(cfg.WalletKey)
	if err != nil {
		log.Fatal("load wallet", zap.Error(err))
	}

	engine := txengine.NewEngine(client, txengine.Config{
		FreshnessWindow: cfg.BlockhashTTL(),
		Confirmation: txengine.ConfirmationConfig{
			PollInterval: cfg.PollInterval(),
			Timeout:      cfg.ConfirmCeiling(),
		},
		Retry: txengine.RetryConfig{
			MaxRetries:  cfg.MaxRetries,
			BackoffBase: cfg.BackoffBase(),
			BackoffCap:  cfg.BackoffCap(),
		},
		Commitment: rpc.CommitmentType(cfg.Commitment),
		Priority:   txengine.PriorityLevel(cfg.Priority),
		Decoder:    fomolt.NewErrorDecoder(),
	}, log)

	instructions, err := buildInstructions(*action, signer.PublicKey(), *recipient, *lamports, *round, *keys, *protocol)
	if err != nil {
		log.Fatal("build instructions", zap.Error(err))
	}

	result, err := engine.Submit(ctx, txengine.Request{
		Instructions:             instructions,
		Signer:                   signer,
		Priority:                 txengine.PriorityLevel(cfg.Priority),
		PriorityFeeMicroLamports: cfg.PriorityFee,
		SkipSimulation:           cfg.SkipSimulation,
		Callbacks: txengine.Callbacks{
			OnTransition: func(from, to txengine.State) {
				fmt.Printf("  %s -> %s\n", from, to)
			},
			OnSuccess: func(sig solana.Signature) {
				fmt.Printf("confirmed: %s\n", sig)
			},
			OnError: func(cerr *txengine.ClassifiedError) {
				fmt.Printf("failed (%s): %v\n", cerr.Tag, cerr)
			},
		},
	})
	if err != nil {
		log.Error("submission failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("submission complete",
		zap.String("signature", result.Signature.String()),
		zap.Int("attempts", len(result.Attempts)),
		zap.String("status", result.Confirmation.Status.String()))
}

func buildInstructions(action string, payer solana.PublicKey, recipient string, lamports, round, keys uint64, protocolWallet string) ([]solana.Instruction, error) {
	switch action {
	case "transfer":
		to, err := solana.PublicKeyFromBase58(recipient)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient: %w", err)
		}
		return []solana.Instruction{
			system.NewTransferInstruction(lamports, payer, to).Build(),
		}, nil
	case "buy-keys":
		protocol, err := solana.PublicKeyFromBase58(protocolWallet)
		if err != nil {
			return nil, fmt.Errorf("invalid protocol wallet: %w", err)
		}
		ix, err := fomolt.NewBuyKeysInstruction(fomolt.BuyKeysParams{
			Buyer:          payer,
			Round:          round,
			KeysToBuy:      keys,
			ProtocolWallet: protocol,
		})
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{ix}, nil
	case "claim":
		ix, err := fomolt.NewClaimInstruction(payer, round)
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{ix}, nil
	case "claim-referral":
		ix, err := fomolt.NewClaimReferralEarningsInstruction(payer, round)
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{ix}, nil
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
}
