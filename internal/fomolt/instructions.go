package fomolt

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// BuyKeysParams drives NewBuyKeysInstruction. Round selects the game PDA;
// Referrer is optional.
type BuyKeysParams struct {
	Buyer          solana.PublicKey
	Round          uint64
	KeysToBuy      uint64
	IsAgent        bool
	ProtocolWallet solana.PublicKey
	Referrer       *solana.PublicKey // referrer's player-state PDA
}

// NewBuyKeysInstruction builds the buy_keys instruction. The account order
// mirrors the program's Accounts struct exactly.
func NewBuyKeysInstruction(params BuyKeysParams) (solana.Instruction, error) {
	if params.KeysToBuy == 0 {
		return nil, fmt.Errorf("keys_to_buy must be positive")
	}
	round, err := DeriveRoundAccounts(params.Round)
	if err != nil {
		return nil, err
	}
	playerState, err := PlayerStatePDA(params.Buyer)
	if err != nil {
		return nil, err
	}

	data := anchorDiscriminator("buy_keys")
	args := make([]byte, 9)
	binary.LittleEndian.PutUint64(args[:8], params.KeysToBuy)
	if params.IsAgent {
		args[8] = 1
	}
	data = append(data, args...)

	// Optional accounts resolve to the program ID when absent.
	referrerState := ProgramID
	referrerWritable := false
	if params.Referrer != nil {
		referrerState = *params.Referrer
		referrerWritable = true
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: params.Buyer, IsSigner: true, IsWritable: true},
		{PublicKey: round.GameState, IsSigner: false, IsWritable: true},
		{PublicKey: playerState, IsSigner: false, IsWritable: true},
		{PublicKey: round.Vault, IsSigner: false, IsWritable: true},
		{PublicKey: params.ProtocolWallet, IsSigner: false, IsWritable: true},
		{PublicKey: referrerState, IsSigner: false, IsWritable: referrerWritable},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// NewClaimInstruction builds the claim instruction for winner prize and
// accumulated dividends.
func NewClaimInstruction(player solana.PublicKey, currentRound uint64) (solana.Instruction, error) {
	return playerVaultInstruction("claim", player, currentRound)
}

// NewClaimReferralEarningsInstruction builds the referral payout claim.
func NewClaimReferralEarningsInstruction(player solana.PublicKey, currentRound uint64) (solana.Instruction, error) {
	return playerVaultInstruction("claim_referral_earnings", player, currentRound)
}

// playerVaultInstruction covers the instructions sharing the
// player/game/vault account shape.
func playerVaultInstruction(name string, player solana.PublicKey, round uint64) (solana.Instruction, error) {
	roundAccounts, err := DeriveRoundAccounts(round)
	if err != nil {
		return nil, err
	}
	playerState, err := PlayerStatePDA(player)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: player, IsSigner: true, IsWritable: true},
		{PublicKey: roundAccounts.GameState, IsSigner: false, IsWritable: true},
		{PublicKey: playerState, IsSigner: false, IsWritable: true},
		{PublicKey: roundAccounts.Vault, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, accounts, anchorDiscriminator(name)), nil
}

// NewStartNewRoundInstruction rolls the game over from currentRound to the
// next one. Anyone may pay for the rollover.
func NewStartNewRoundInstruction(payer solana.PublicKey, currentRound uint64) (solana.Instruction, error) {
	configAddr, err := ConfigPDA()
	if err != nil {
		return nil, err
	}
	prev, err := DeriveRoundAccounts(currentRound)
	if err != nil {
		return nil, err
	}
	next, err := DeriveRoundAccounts(currentRound + 1)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: configAddr, IsSigner: false, IsWritable: false},
		{PublicKey: prev.GameState, IsSigner: false, IsWritable: true},
		{PublicKey: next.GameState, IsSigner: false, IsWritable: true},
		{PublicKey: prev.Vault, IsSigner: false, IsWritable: true},
		{PublicKey: next.Vault, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, accounts, anchorDiscriminator("start_new_round")), nil
}

// NewInitializeFirstRoundInstruction bootstraps round 1. Admin only.
func NewInitializeFirstRoundInstruction(admin solana.PublicKey) (solana.Instruction, error) {
	configAddr, err := ConfigPDA()
	if err != nil {
		return nil, err
	}
	first, err := DeriveRoundAccounts(1)
	if err != nil {
		return nil, err
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: admin, IsSigner: true, IsWritable: true},
		{PublicKey: configAddr, IsSigner: false, IsWritable: false},
		{PublicKey: first.GameState, IsSigner: false, IsWritable: true},
		{PublicKey: first.Vault, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(ProgramID, accounts, anchorDiscriminator("initialize_first_round")), nil
}
