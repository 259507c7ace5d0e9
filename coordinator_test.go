package accumulate

import (
	"context"
	"crypto/ed25519"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMicro(1_700_000_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTransport struct {
	mu        sync.Mutex
	envelopes []*Envelope
	submitErr error
	state     KeyPageState
	queryErr  error
}

func (f *fakeTransport) Submit(_ context.Context, envelope *Envelope) ([]SubmissionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envelopes = append(f.envelopes, envelope)
	if f.submitErr != nil {
		return []SubmissionResult{{Success: false, Message: f.submitErr.Error()}}, f.submitErr
	}
	return []SubmissionResult{{Success: true, Status: "delivered"}}, nil
}

func (f *fakeTransport) QueryKeyPage(_ context.Context, page *URL, _ []byte) (*KeyPageState, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	state := f.state
	state.Url = page
	return &state, nil
}

func (f *fakeTransport) submitted() []*Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Envelope(nil), f.envelopes...)
}

func newTestCoordinator(t *testing.T, transport *fakeTransport, clock *testClock, store PreparedStore) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(&CoordinatorOptions{
		Store:     store,
		Submitter: transport,
		Querier:   transport,
		Now:       clock.Now,
	})
	require.NoError(t, err)
	return c
}

func testPrepareInput(signer Signer) *PrepareInput {
	return &PrepareInput{
		Transaction: testWriteData(),
		Signer:      MustParseURL("acc://alice.acme/book/1"),
		PublicKey:   signer.PublicKey(),
	}
}

func TestCoordinator_PrepareSubmit(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	clock := newTestClock()
	transport := &fakeTransport{state: KeyPageState{Version: 3}}
	c := newTestCoordinator(t, transport, clock, nil)

	in := testPrepareInput(signer)
	prepared := c.Prepare(ctx, in)
	require.True(t, prepared.Success, prepared.Error)
	assert.Regexp(t, `^prep_\d+_[1-9A-HJ-NP-Za-km-z]+$`, prepared.RequestID)
	assert.Equal(t, uint64(3), prepared.SignerVersion)
	assert.Equal(t, "acc://alice.acme/book/1", prepared.Signer.String())
	assert.Equal(t, uint64(clock.Now().UnixMicro())+1_000_000, prepared.Timestamp)
	assert.Nil(t, in.Transaction.GetInitiator(), "the caller's transaction is not mutated")

	raw, err := signer.SignRaw(ctx, prepared.HashToSign)
	require.NoError(t, err)

	result := c.Submit(ctx, prepared.RequestID, raw, signer.PublicKey())
	require.True(t, result.Success, result.Error)
	assert.Equal(t, prepared.TransactionHash, result.TxHash)

	envelopes := transport.submitted()
	require.Len(t, envelopes, 1)
	require.Len(t, envelopes[0].Transaction, 1)

	key, ok := envelopes[0].Signatures[0].(*ED25519Signature)
	require.True(t, ok)
	assert.Equal(t, raw, []byte(key.Signature))
	assert.Equal(t, []byte(prepared.TransactionHash), []byte(key.TransactionHash))
	assert.Equal(t, prepared.Timestamp, key.Timestamp)
	assert.Equal(t, uint64(3), key.SignerVersion)
	assert.True(t, ed25519.Verify(signer.PublicKey(), prepared.HashToSign, key.Signature))

	tx := envelopes[0].Transaction[0]
	assert.Equal(t, metadataHashOf(t, key), tx.GetInitiator())
	txHash, err := tx.Hash()
	require.NoError(t, err)
	assert.Equal(t, []byte(prepared.TransactionHash), txHash)

	again := c.Submit(ctx, prepared.RequestID, raw, signer.PublicKey())
	assert.False(t, again.Success)
	assert.True(t, errors.Is(again.Err, ErrNotFound), "%+v", again.Err)
	assert.Len(t, transport.submitted(), 1)
}

func TestCoordinator_TimestampAfterLastUsed(t *testing.T) {
	clock := newTestClock()
	lastUsed := uint64(clock.Now().UnixMicro()) + 5_000_000
	transport := &fakeTransport{state: KeyPageState{Version: 1, LastUsedOn: lastUsed}}
	c := newTestCoordinator(t, transport, clock, nil)

	prepared := c.Prepare(context.Background(), testPrepareInput(testSigner(t)))
	require.True(t, prepared.Success, prepared.Error)
	assert.Equal(t, lastUsed+2_000_000, prepared.Timestamp)
}

func TestCoordinator_Expiry(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	clock := newTestClock()
	c := newTestCoordinator(t, &fakeTransport{}, clock, nil)

	prepared := c.Prepare(ctx, testPrepareInput(signer))
	require.True(t, prepared.Success, prepared.Error)

	clock.Advance(DefaultPreparedTTL + time.Second)

	raw, err := signer.SignRaw(ctx, prepared.HashToSign)
	require.NoError(t, err)

	result := c.Submit(ctx, prepared.RequestID, raw, nil)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, ErrNotFound), "%+v", result.Err)
}

func TestCoordinator_LazySweep(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	clock := newTestClock()
	c := newTestCoordinator(t, &fakeTransport{}, clock, nil)

	first := c.Prepare(ctx, testPrepareInput(signer))
	require.True(t, first.Success, first.Error)

	clock.Advance(DefaultPreparedTTL + time.Second)

	second := c.Prepare(ctx, testPrepareInput(signer))
	require.True(t, second.Success, second.Error)

	pending, err := c.Pending()
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "the expired entry is swept before the new one is stored")

	result := c.Submit(ctx, first.RequestID, []byte{1}, nil)
	assert.True(t, errors.Is(result.Err, ErrNotFound), "%+v", result.Err)
}

func TestCoordinator_SingleUseUnderContention(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	clock := newTestClock()
	transport := &fakeTransport{}
	c := newTestCoordinator(t, transport, clock, nil)

	prepared := c.Prepare(ctx, testPrepareInput(signer))
	require.True(t, prepared.Success, prepared.Error)
	raw, err := signer.SignRaw(ctx, prepared.HashToSign)
	require.NoError(t, err)

	var successes, notFound atomic.Int32
	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.Submit(ctx, prepared.RequestID, raw, nil)
			if result.Success {
				successes.Add(1)
			} else if errors.Is(result.Err, ErrNotFound) {
				notFound.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(15), notFound.Load())
	assert.Len(t, transport.submitted(), 1)
}

func TestCoordinator_IgnoresSuppliedKey(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	other, err := NewLocalSigner(make([]byte, ed25519.SeedSize))
	require.NoError(t, err)

	transport := &fakeTransport{}
	c := newTestCoordinator(t, transport, newTestClock(), nil)

	prepared := c.Prepare(ctx, testPrepareInput(signer))
	require.True(t, prepared.Success, prepared.Error)
	raw, err := signer.SignRaw(ctx, prepared.HashToSign)
	require.NoError(t, err)

	result := c.Submit(ctx, prepared.RequestID, raw, other.PublicKey())
	require.True(t, result.Success, result.Error)

	key := transport.submitted()[0].Signatures[0].(*ED25519Signature)
	assert.Equal(t, signer.PublicKey(), []byte(key.PublicKey))
}

func TestCoordinator_Rejected(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)
	transport := &fakeTransport{submitErr: errors.Wrap(ErrSubmissionRejected, "insufficient credits")}
	c := newTestCoordinator(t, transport, newTestClock(), nil)

	prepared := c.Prepare(ctx, testPrepareInput(signer))
	require.True(t, prepared.Success, prepared.Error)
	raw, err := signer.SignRaw(ctx, prepared.HashToSign)
	require.NoError(t, err)

	result := c.Submit(ctx, prepared.RequestID, raw, nil)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, ErrSubmissionRejected), "%+v", result.Err)
	assert.Contains(t, result.Error, "insufficient credits")
	assert.Equal(t, prepared.TransactionHash, result.TxHash)

	again := c.Submit(ctx, prepared.RequestID, raw, nil)
	assert.True(t, errors.Is(again.Err, ErrNotFound), "a rejected request is still consumed")
}

func TestCoordinator_PrepareFailures(t *testing.T) {
	ctx := context.Background()
	signer := testSigner(t)

	c := newTestCoordinator(t, &fakeTransport{queryErr: errors.Wrap(ErrKeyNotFound, "nope")}, newTestClock(), nil)
	result := c.Prepare(ctx, testPrepareInput(signer))
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, ErrKeyNotFound), "%+v", result.Err)

	c = newTestCoordinator(t, &fakeTransport{}, newTestClock(), nil)
	in := testPrepareInput(signer)
	in.PublicKey = in.PublicKey[:16]
	result = c.Prepare(ctx, in)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, ErrInvalidPublicKey), "%+v", result.Err)

	result = c.Prepare(ctx, &PrepareInput{Signer: MustParseURL("acc://a/book/1"), PublicKey: signer.PublicKey()})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestCoordinator_PeriodicSweep(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	c, err := NewCoordinator(&CoordinatorOptions{
		Submitter:     &fakeTransport{},
		SweepInterval: 10 * time.Millisecond,
		Now:           clock.Now,
	})
	require.NoError(t, err)

	events := make(chan *CoordinatorEvent, 10)
	c.Events().On(func(e *CoordinatorEvent) { events <- e })

	prepared := c.Prepare(ctx, testPrepareInput(testSigner(t)))
	require.True(t, prepared.Success, prepared.Error)

	c.Start()
	defer func() { require.NoError(t, c.Stop()) }()

	clock.Advance(DefaultPreparedTTL + time.Second)

	var expired *CoordinatorEvent
	for expired == nil {
		if e := receiveWithin(t, events); e.Type == EventExpired {
			expired = e
		}
	}
	assert.Equal(t, 1, expired.Count)
	assert.Empty(t, expired.RequestID)

	pending, err := c.Pending()
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestCoordinator_RecordsLastUsedOn(t *testing.T) {
	clock := newTestClock()
	lastUsed := uint64(clock.Now().UnixMicro()) - 1_000
	store := NewInMemoryPreparedStore()
	transport := &fakeTransport{state: KeyPageState{Version: 1, LastUsedOn: lastUsed}}
	c := newTestCoordinator(t, transport, clock, store)

	prepared := c.Prepare(context.Background(), testPrepareInput(testSigner(t)))
	require.True(t, prepared.Success, prepared.Error)

	record, err := store.Take(prepared.RequestID)
	require.NoError(t, err)
	assert.Equal(t, lastUsed, record.LastUsedOn)
	assert.Equal(t, prepared.Timestamp, record.Timestamp)
}

func TestCoordinator_PrepareNilRecipient(t *testing.T) {
	c := newTestCoordinator(t, &fakeTransport{}, newTestClock(), nil)

	in := testPrepareInput(testSigner(t))
	in.Transaction = NewTransaction(MustParseURL("acc://alice.acme/tokens"), &SendTokens{
		To: []*TokenRecipient{nil},
	})

	var result *PrepareResult
	require.NotPanics(t, func() { result = c.Prepare(context.Background(), in) })
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, ErrFieldTypeMismatch), "%+v", result.Err)
	assert.NotEmpty(t, result.Error)

	pending, err := c.Pending()
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}
