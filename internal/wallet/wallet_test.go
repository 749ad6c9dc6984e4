package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fomolt3d/txkit/internal/txengine"
)

func newTestWallet(t *testing.T) (*Wallet, solana.PrivateKey) {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	w, err := New(key.String())
	require.NoError(t, err)
	return w, key
}

func unsignedTransfer(t *testing.T, payer solana.PublicKey) *solana.Transaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, solana.SystemProgramID).Build()},
		solana.Hash{1},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	return tx
}

func TestNewDerivesPublicKey(t *testing.T) {
	w, key := newTestWallet(t)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
}

func TestNewRejectsMalformedKeys(t *testing.T) {
	_, err := New("not-base58-!!!")
	assert.Error(t, err)

	// A 32-byte seed is not the 64-byte keypair encoding.
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	short, err := New(key.PublicKey().String())
	assert.Error(t, err)
	assert.Nil(t, short)
}

func TestFromFile(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.txt")
	require.NoError(t, os.WriteFile(path, []byte(key.String()+"\n"), 0o600))

	w, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), w.PublicKey())
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	w, _ := newTestWallet(t)
	tx := unsignedTransfer(t, w.PublicKey())

	require.NoError(t, w.Sign(context.Background(), tx))
	require.Len(t, tx.Signatures, 1)
	assert.NoError(t, tx.VerifySignatures())
}

func TestSignHonorsApprovalHook(t *testing.T) {
	w, _ := newTestWallet(t)
	w.WithApproval(func(tx *solana.Transaction) bool { return false })
	tx := unsignedTransfer(t, w.PublicKey())

	err := w.Sign(context.Background(), tx)
	assert.ErrorIs(t, err, txengine.ErrUserRejected)
	assert.Empty(t, tx.Signatures)
}

func TestSignRespectsCancelledContext(t *testing.T) {
	w, _ := newTestWallet(t)
	tx := unsignedTransfer(t, w.PublicKey())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.Sign(ctx, tx), context.Canceled)
}
