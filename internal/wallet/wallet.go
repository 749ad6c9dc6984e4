// Package wallet implements the local keypair side of the signer boundary.
package wallet

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/fomolt3d/txkit/internal/txengine"
)

// ApprovalFunc is consulted before every signature. Returning false maps to
// a user rejection; a nil func approves everything. This is where an
// interactive confirmation prompt hooks in.
type ApprovalFunc func(tx *solana.Transaction) bool

// Wallet signs transactions with a locally held private key. It implements
// txengine.Signer.
type Wallet struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
	approve    ApprovalFunc
}

// New builds a wallet from a base58-encoded 64-byte private key.
func New(privateKeyBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(raw))
	}
	key := solana.PrivateKey(raw)
	return &Wallet{
		privateKey: key,
		publicKey:  key.PublicKey(),
	}, nil
}

// FromFile loads a base58 key from a file.
func FromFile(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return New(string(raw))
}

// WithApproval installs an approval hook.
func (w *Wallet) WithApproval(fn ApprovalFunc) *Wallet {
	w.approve = fn
	return w
}

func (w *Wallet) PublicKey() solana.PublicKey { return w.publicKey }

// Sign signs tx in place. A declined approval returns
// txengine.ErrUserRejected so the engine can treat it as a deliberate
// cancel, not a failure.
func (w *Wallet) Sign(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.approve != nil && !w.approve(tx) {
		return txengine.ErrUserRejected
	}

	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if w.publicKey.Equals(key) {
			keyCopy := w.privateKey
			return &keyCopy
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}
