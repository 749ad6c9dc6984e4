package txengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// fakeClient implements ChainClient with per-method hooks. Defaults behave
// like a healthy node confirming everything on the first poll.
type fakeClient struct {
	mu sync.Mutex

	blockhashCalls int
	blockhashFn    func(call int) (solana.Hash, uint64, error)

	heightCalls int
	heightFn    func(call int) (uint64, error)

	simulateCalls int
	simulateFn    func(tx *solana.Transaction) (*rpc.SimulateTransactionResult, error)

	sendCalls int
	sendFn    func(call int, tx *solana.Transaction, opts SubmitOptions) (solana.Signature, error)

	statusCalls int
	statusFn    func(call int, sig solana.Signature, searchHistory bool) (*rpc.SignatureStatusesResult, error)

	feesFn func() ([]rpc.PriorizationFeeResult, error)

	subscribeFn func(sig solana.Signature) (SignatureSubscription, error)
}

func makeHash(n byte) solana.Hash {
	var h solana.Hash
	h[0] = n
	return h
}

func makeSig(n byte) solana.Signature {
	var s solana.Signature
	s[0] = n
	return s
}

func uintPtr(v uint64) *uint64 { return &v }

func (f *fakeClient) LatestBlockhash(ctx context.Context) (solana.Hash, uint64, error) {
	f.mu.Lock()
	f.blockhashCalls++
	call := f.blockhashCalls
	fn := f.blockhashFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call)
	}
	return makeHash(byte(call)), 1000, nil
}

func (f *fakeClient) BlockHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	f.heightCalls++
	call := f.heightCalls
	fn := f.heightFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call)
	}
	return 10, nil
}

func (f *fakeClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResult, error) {
	f.mu.Lock()
	f.simulateCalls++
	fn := f.simulateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(tx)
	}
	return &rpc.SimulateTransactionResult{UnitsConsumed: uintPtr(100_000)}, nil
}

func (f *fakeClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts SubmitOptions) (solana.Signature, error) {
	f.mu.Lock()
	f.sendCalls++
	call := f.sendCalls
	fn := f.sendFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call, tx, opts)
	}
	return makeSig(byte(call)), nil
}

func (f *fakeClient) SignatureStatus(ctx context.Context, sig solana.Signature, searchHistory bool) (*rpc.SignatureStatusesResult, error) {
	f.mu.Lock()
	f.statusCalls++
	call := f.statusCalls
	fn := f.statusFn
	f.mu.Unlock()
	if fn != nil {
		return fn(call, sig, searchHistory)
	}
	return &rpc.SignatureStatusesResult{
		Slot:               42,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}, nil
}

func (f *fakeClient) RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]rpc.PriorizationFeeResult, error) {
	f.mu.Lock()
	fn := f.feesFn
	f.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return []rpc.PriorizationFeeResult{
		{Slot: 1, PrioritizationFee: 100},
		{Slot: 2, PrioritizationFee: 300},
		{Slot: 3, PrioritizationFee: 200},
	}, nil
}

func (f *fakeClient) SubscribeSignature(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (SignatureSubscription, error) {
	f.mu.Lock()
	fn := f.subscribeFn
	f.mu.Unlock()
	if fn != nil {
		return fn(sig)
	}
	return nil, fmt.Errorf("no push channel in this fake")
}

// counters with the lock held briefly, for assertions.
func (f *fakeClient) counts() (blockhash, simulate, send, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blockhashCalls, f.simulateCalls, f.sendCalls, f.statusCalls
}

// fakeSub is a scripted push subscription that records its teardown.
type fakeSub struct {
	mu       sync.Mutex
	recvFn   func(ctx context.Context) (interface{}, error)
	unsubbed bool
}

func (s *fakeSub) Recv(ctx context.Context) (interface{}, error) {
	if s.recvFn != nil {
		return s.recvFn(ctx)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *fakeSub) Unsubscribe() {
	s.mu.Lock()
	s.unsubbed = true
	s.mu.Unlock()
}

func (s *fakeSub) released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubbed
}

// testSigner signs with a throwaway key, optionally rejecting like a user
// declining a wallet prompt.
type testSigner struct {
	key     solana.PrivateKey
	rejects bool

	mu    sync.Mutex
	signs int
}

func newTestSigner() *testSigner {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	return &testSigner{key: key}
}

func (s *testSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func (s *testSigner) Sign(ctx context.Context, tx *solana.Transaction) error {
	s.mu.Lock()
	s.signs++
	s.mu.Unlock()
	if s.rejects {
		return ErrUserRejected
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if s.key.PublicKey().Equals(key) {
			keyCopy := s.key
			return &keyCopy
		}
		return nil
	})
	return err
}
