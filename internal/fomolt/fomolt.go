// Package fomolt contains the client-side bindings for the fomolt3d
// program: PDA derivation, instruction builders and the custom error table.
package fomolt

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the deployment the bindings target; override with SetProgramID
// when pointing at another cluster.
var ProgramID = solana.MustPublicKeyFromBase58("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

// SetProgramID points the bindings at a different deployment.
func SetProgramID(id solana.PublicKey) {
	ProgramID = id
}

// anchorDiscriminator derives the 8-byte instruction discriminator the
// program's dispatcher matches on.
func anchorDiscriminator(name string) []byte {
	hash := sha256.Sum256([]byte("global:" + name))
	return hash[:8]
}

// ConfigPDA derives the global config account.
func ConfigPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("config")}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive config PDA: %w", err)
	}
	return addr, nil
}

// GameStatePDA derives the game state account for a round.
func GameStatePDA(round uint64) (solana.PublicKey, error) {
	roundBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(roundBytes, round)
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("game"), roundBytes}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive game PDA for round %d: %w", round, err)
	}
	return addr, nil
}

// PlayerStatePDA derives a player's state account.
func PlayerStatePDA(player solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("player"), player.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive player PDA: %w", err)
	}
	return addr, nil
}

// VaultPDA derives the SOL vault for a game state account.
func VaultPDA(gameState solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("vault"), gameState.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive vault PDA: %w", err)
	}
	return addr, nil
}

// RoundAccounts bundles the per-round PDAs most instructions need.
type RoundAccounts struct {
	GameState solana.PublicKey
	Vault     solana.PublicKey
}

// DeriveRoundAccounts resolves the game state and vault for a round.
func DeriveRoundAccounts(round uint64) (RoundAccounts, error) {
	gameState, err := GameStatePDA(round)
	if err != nil {
		return RoundAccounts{}, err
	}
	vault, err := VaultPDA(gameState)
	if err != nil {
		return RoundAccounts{}, err
	}
	return RoundAccounts{GameState: gameState, Vault: vault}, nil
}
