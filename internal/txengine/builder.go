package txengine

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// TransactionBuilder assembles budget and payload instructions into one
// unsigned transaction. Pure, no network I/O.
type TransactionBuilder struct{}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{}
}

// Build places the compute-budget instructions (unit limit, then unit price)
// ahead of every payload instruction. The runtime only honors budget
// instructions that precede the payload, so the ordering is mandatory.
func (b *TransactionBuilder) Build(instructions []solana.Instruction, budget ComputeBudget, record BlockhashRecord, payer solana.PublicKey) (*solana.Transaction, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	all := make([]solana.Instruction, 0, len(instructions)+2)
	if budget.UnitLimit > 0 {
		all = append(all, computebudget.NewSetComputeUnitLimitInstruction(budget.UnitLimit).Build())
	}
	if budget.UnitPriceMicroLamports > 0 {
		all = append(all, computebudget.NewSetComputeUnitPriceInstruction(budget.UnitPriceMicroLamports).Build())
	}
	all = append(all, instructions...)

	tx, err := solana.NewTransaction(
		all,
		record.Hash,
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}
