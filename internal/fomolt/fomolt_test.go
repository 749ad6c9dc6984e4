package fomolt

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorDiscriminator(t *testing.T) {
	want := sha256.Sum256([]byte("global:buy_keys"))
	assert.Equal(t, want[:8], anchorDiscriminator("buy_keys"))
	assert.Len(t, anchorDiscriminator("claim"), 8)
	assert.NotEqual(t, anchorDiscriminator("claim"), anchorDiscriminator("buy_keys"))
}

func TestPDADerivationIsDeterministic(t *testing.T) {
	cfg1, err := ConfigPDA()
	require.NoError(t, err)
	cfg2, err := ConfigPDA()
	require.NoError(t, err)
	assert.Equal(t, cfg1, cfg2)

	game5, err := GameStatePDA(5)
	require.NoError(t, err)
	game6, err := GameStatePDA(6)
	require.NoError(t, err)
	assert.NotEqual(t, game5, game6, "each round owns its own game state account")

	vault5, err := VaultPDA(game5)
	require.NoError(t, err)
	vault6, err := VaultPDA(game6)
	require.NoError(t, err)
	assert.NotEqual(t, vault5, vault6)
}

func TestDeriveRoundAccounts(t *testing.T) {
	round, err := DeriveRoundAccounts(3)
	require.NoError(t, err)

	game, err := GameStatePDA(3)
	require.NoError(t, err)
	vault, err := VaultPDA(game)
	require.NoError(t, err)

	assert.Equal(t, game, round.GameState)
	assert.Equal(t, vault, round.Vault)
}

func TestBuyKeysInstructionLayout(t *testing.T) {
	buyer := solana.NewWallet().PublicKey()
	protocol := solana.NewWallet().PublicKey()

	ix, err := NewBuyKeysInstruction(BuyKeysParams{
		Buyer:          buyer,
		Round:          2,
		KeysToBuy:      7,
		IsAgent:        true,
		ProtocolWallet: protocol,
	})
	require.NoError(t, err)

	assert.Equal(t, ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 17, "8-byte discriminator, u64 keys, bool agent flag")
	assert.Equal(t, anchorDiscriminator("buy_keys"), data[:8])
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, byte(1), data[16])

	accounts := ix.Accounts()
	require.Len(t, accounts, 7)

	round, err := DeriveRoundAccounts(2)
	require.NoError(t, err)
	playerState, err := PlayerStatePDA(buyer)
	require.NoError(t, err)

	assert.Equal(t, buyer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, round.GameState, accounts[1].PublicKey)
	assert.Equal(t, playerState, accounts[2].PublicKey)
	assert.Equal(t, round.Vault, accounts[3].PublicKey)
	assert.Equal(t, protocol, accounts[4].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[6].PublicKey)

	// Without a referrer the optional slot holds the program ID, read-only.
	assert.Equal(t, ProgramID, accounts[5].PublicKey)
	assert.False(t, accounts[5].IsWritable)
}

func TestBuyKeysInstructionWithReferrer(t *testing.T) {
	referrerState, err := PlayerStatePDA(solana.NewWallet().PublicKey())
	require.NoError(t, err)

	ix, err := NewBuyKeysInstruction(BuyKeysParams{
		Buyer:          solana.NewWallet().PublicKey(),
		Round:          1,
		KeysToBuy:      1,
		ProtocolWallet: solana.NewWallet().PublicKey(),
		Referrer:       &referrerState,
	})
	require.NoError(t, err)

	accounts := ix.Accounts()
	assert.Equal(t, referrerState, accounts[5].PublicKey)
	assert.True(t, accounts[5].IsWritable, "a present referrer state receives earnings")
}

func TestBuyKeysRejectsZeroKeys(t *testing.T) {
	_, err := NewBuyKeysInstruction(BuyKeysParams{
		Buyer:          solana.NewWallet().PublicKey(),
		Round:          1,
		KeysToBuy:      0,
		ProtocolWallet: solana.NewWallet().PublicKey(),
	})
	assert.Error(t, err)
}

func TestClaimInstructionsShareAccountShape(t *testing.T) {
	player := solana.NewWallet().PublicKey()

	claim, err := NewClaimInstruction(player, 4)
	require.NoError(t, err)
	referral, err := NewClaimReferralEarningsInstruction(player, 4)
	require.NoError(t, err)

	claimData, err := claim.Data()
	require.NoError(t, err)
	referralData, err := referral.Data()
	require.NoError(t, err)
	assert.Equal(t, anchorDiscriminator("claim"), claimData)
	assert.Equal(t, anchorDiscriminator("claim_referral_earnings"), referralData)

	require.Len(t, claim.Accounts(), 5)
	for i, meta := range claim.Accounts() {
		assert.Equal(t, meta.PublicKey, referral.Accounts()[i].PublicKey)
	}
}

func TestStartNewRoundInstruction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()

	ix, err := NewStartNewRoundInstruction(payer, 9)
	require.NoError(t, err)

	prev, err := DeriveRoundAccounts(9)
	require.NoError(t, err)
	next, err := DeriveRoundAccounts(10)
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 7)
	assert.Equal(t, payer, accounts[0].PublicKey)
	assert.False(t, accounts[1].IsWritable, "config is read-only during rollover")
	assert.Equal(t, prev.GameState, accounts[2].PublicKey)
	assert.Equal(t, next.GameState, accounts[3].PublicKey)
	assert.Equal(t, prev.Vault, accounts[4].PublicKey)
	assert.Equal(t, next.Vault, accounts[5].PublicKey)
}

func TestErrorDecoderBounds(t *testing.T) {
	decoder := NewErrorDecoder()

	name, ok := decoder.Decode(6000)
	require.True(t, ok)
	assert.Equal(t, "GameNotActive: Game round is not active", name)

	name, ok = decoder.Decode(6019)
	require.True(t, ok)
	assert.Equal(t, "PlayerNotInRound: Player is not in this round", name)

	_, ok = decoder.Decode(5999)
	assert.False(t, ok)
	_, ok = decoder.Decode(6020)
	assert.False(t, ok)
	_, ok = decoder.Decode(1)
	assert.False(t, ok, "framework error codes are outside the program table")
}
