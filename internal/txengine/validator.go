package txengine

import (
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Validator runs the cheap structural checks before a transaction leaves the
// process.
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("tx-validator")}
}

// ValidateInstructions rejects an empty payload before any network work.
func (v *Validator) ValidateInstructions(instructions []solana.Instruction) error {
	if len(instructions) == 0 {
		return ErrNoInstructions
	}
	return nil
}

// ValidateSigned checks a transaction right before submission.
func (v *Validator) ValidateSigned(tx *solana.Transaction) error {
	if len(tx.Signatures) == 0 {
		return ErrMissingSignature
	}
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrMissingBlockhash
	}
	if len(tx.Message.Instructions) == 0 {
		return ErrNoInstructions
	}
	return nil
}
