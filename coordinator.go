package accumulate

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultPreparedTTL   = 5 * time.Minute
	DefaultSweepInterval = time.Minute

	requestIDPrefix = "prep_"
)

type CoordinatorOptions struct {
	Store         PreparedStore
	Submitter     Submitter
	Querier       KeyPageQuerier
	TTL           time.Duration
	SweepInterval time.Duration
	Encoder       *Encoder
	Logger        *zerolog.Logger
	Now           func() time.Time
}

func (o *CoordinatorOptions) setDefaults() {
	if o.Store == nil {
		o.Store = NewInMemoryPreparedStore()
	}
	if o.TTL <= 0 {
		o.TTL = DefaultPreparedTTL
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Encoder == nil {
		o.Encoder = defaultEncoder
	}
	if o.Logger == nil {
		o.Logger = Log()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Coordinator splits signing into a prepare step, which hands out the digest
// to sign, and a submit step, which accepts the raw signature produced out of
// process and sends the completed envelope.
type Coordinator struct {
	options  *CoordinatorOptions
	store    PreparedStore
	builder  *SignatureBuilder
	log      *zerolog.Logger
	sweeper  *PeriodicCaller
	sweeping atomic.Bool
	events   EventQueue[*CoordinatorEvent]
}

func NewCoordinator(options *CoordinatorOptions) (c *Coordinator, err error) {
	if options == nil {
		options = &CoordinatorOptions{}
	}
	options.setDefaults()

	if options.Submitter == nil {
		return nil, errors.New("coordinator requires a submitter")
	}

	c = &Coordinator{
		options: options,
		store:   options.Store,
		builder: &SignatureBuilder{encoder: options.Encoder, log: options.Logger},
		log:     options.Logger,
		events:  NewEventQueue[*CoordinatorEvent](),
	}
	c.sweeper = NewPeriodicCaller(options.SweepInterval, func() {
		c.Sweep()
	})

	return
}

type PrepareInput struct {
	Transaction   *Transaction `json:"transaction"`
	Signer        *URL         `json:"signer"`
	SignerVersion uint64       `json:"signerVersion,omitempty"`
	PublicKey     HexBytes     `json:"publicKey"`
	Vote          VoteType     `json:"vote,omitempty"`
	Memo          string       `json:"memo,omitempty"`
	Data          HexBytes     `json:"data,omitempty"`
	Delegators    []*URL       `json:"delegators,omitempty"`
}

type PrepareResult struct {
	Success         bool      `json:"success"`
	RequestID       string    `json:"requestId,omitempty"`
	HashToSign      HexBytes  `json:"hashToSign,omitempty"`
	TransactionHash HexBytes  `json:"transactionHash,omitempty"`
	Signer          *URL      `json:"signer,omitempty"`
	SignerVersion   uint64    `json:"signerVersion,omitempty"`
	Timestamp       uint64    `json:"timestamp,omitempty"`
	ExpiresAt       time.Time `json:"expiresAt,omitempty"`
	Error           string    `json:"error,omitempty"`
	Err             error     `json:"-"`
}

type SubmitResult struct {
	Success bool               `json:"success"`
	TxHash  HexBytes           `json:"txHash,omitempty"`
	Results []SubmissionResult `json:"results,omitempty"`
	Error   string             `json:"error,omitempty"`
	Err     error              `json:"-"`
}

func prepareFailure(err error) *PrepareResult {
	return &PrepareResult{Error: err.Error(), Err: err}
}

// Prepare computes the digest the external signer must sign and stores the
// state needed to finish the signature under a fresh request id.
func (c *Coordinator) Prepare(ctx context.Context, in *PrepareInput) *PrepareResult {
	if in == nil || in.Transaction == nil {
		return prepareFailure(errors.New("transaction is required"))
	}
	if in.Signer == nil {
		return prepareFailure(errors.Wrap(ErrInvalidSigner, "signer url is required"))
	}
	if len(in.PublicKey) != ed25519.PublicKeySize {
		return prepareFailure(errors.Wrapf(ErrInvalidPublicKey, "expected %d bytes, got %d", ed25519.PublicKeySize, len(in.PublicKey)))
	}

	// a sweep just ran, the periodic one can wait
	c.Sweep()
	c.sweeper.Postpone()

	now := c.options.Now()
	version := in.SignerVersion
	var lastUsedOn uint64

	if c.options.Querier != nil {
		state, err := c.options.Querier.QueryKeyPage(ctx, in.Signer, in.PublicKey)
		if err != nil {
			return prepareFailure(err)
		}
		if version == 0 {
			version = state.Version
		}
		lastUsedOn = state.LastUsedOn
	}
	if version == 0 {
		version = 1
	}

	opts := SignOptions{
		Signer:        in.Signer,
		SignerVersion: version,
		Timestamp:     FreshTimestamp(lastUsedOn, now),
		Vote:          in.Vote,
		Memo:          in.Memo,
		Data:          in.Data,
		Delegators:    in.Delegators,
	}

	tx := in.Transaction.Copy()
	req, err := c.builder.Prepare(tx, in.PublicKey, opts)
	if err != nil {
		return prepareFailure(err)
	}

	requestID, err := newRequestID(now)
	if err != nil {
		return prepareFailure(err)
	}

	prepared := &PreparedTransaction{
		RequestID:       requestID,
		Transaction:     tx,
		PublicKey:       append(HexBytes(nil), in.PublicKey...),
		Signer:          opts.Signer,
		SignerVersion:   opts.SignerVersion,
		Timestamp:       opts.Timestamp,
		LastUsedOn:      lastUsedOn,
		Vote:            opts.Vote,
		Memo:            opts.Memo,
		Data:            opts.Data,
		Delegators:      opts.Delegators,
		MetadataHash:    req.MetadataHash,
		TransactionHash: req.MessageHash,
		HashToSign:      req.HashToSign,
		CreatedAt:       now,
	}

	if err = c.store.Put(prepared); err != nil {
		return prepareFailure(err)
	}

	preparedTotal.Inc()
	c.refreshPending()
	c.log.Info().Msgf("prepared %s for %s (tx %x)", requestID, in.Signer, req.MessageHash)
	c.publish(&CoordinatorEvent{Type: EventPrepared, RequestID: requestID, TransactionHash: req.MessageHash})

	return &PrepareResult{
		Success:         true,
		RequestID:       requestID,
		HashToSign:      req.HashToSign,
		TransactionHash: req.MessageHash,
		Signer:          opts.Signer,
		SignerVersion:   opts.SignerVersion,
		Timestamp:       opts.Timestamp,
		ExpiresAt:       now.Add(c.options.TTL),
	}
}

// Submit completes a prepared transaction with a raw signature and sends it.
// A request id is consumed by the first call, whatever its outcome.
func (c *Coordinator) Submit(ctx context.Context, requestID string, signature, publicKey []byte) *SubmitResult {
	failure := func(label string, err error) *SubmitResult {
		submittedTotal.WithLabelValues(label).Inc()
		return &SubmitResult{Error: err.Error(), Err: err}
	}

	prepared, err := c.store.Take(requestID)
	c.refreshPending()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return failure(submitResultNotFound, err)
		}
		return failure(submitResultError, err)
	}

	if c.options.Now().Sub(prepared.CreatedAt) > c.options.TTL {
		expiredTotal.Inc()
		c.publish(&CoordinatorEvent{Type: EventExpired, RequestID: requestID, TransactionHash: prepared.TransactionHash, Count: 1})
		return failure(submitResultNotFound, errors.Wrapf(ErrNotFound, "request id %s expired", requestID))
	}

	if len(publicKey) > 0 && !bytes.Equal(publicKey, prepared.PublicKey) {
		c.log.Warn().Msgf("submit %s: ignoring supplied public key %x, prepared with %x", requestID, publicKey, []byte(prepared.PublicKey))
	}

	req, err := c.builder.Prepare(prepared.Transaction, prepared.PublicKey, prepared.SignOptions())
	if err != nil {
		return failure(submitResultError, err)
	}
	if !bytes.Equal(req.HashToSign, prepared.HashToSign) {
		return failure(submitResultError, errors.Errorf("request id %s no longer reproduces its prepared digest", requestID))
	}

	envelope := &Envelope{
		Signatures:  []Signature{req.Complete(signature)},
		Transaction: []*Transaction{prepared.Transaction},
	}

	results, err := c.options.Submitter.Submit(ctx, envelope)
	if err != nil {
		label := submitResultError
		if errors.Is(err, ErrSubmissionRejected) {
			label = submitResultRejected
		}
		result := failure(label, err)
		result.TxHash = req.MessageHash
		result.Results = results
		c.log.Warn().Msgf("submit %s failed: %v", requestID, err)
		c.publish(&CoordinatorEvent{Type: EventRejected, RequestID: requestID, TransactionHash: req.MessageHash, Error: err.Error()})
		return result
	}

	submittedTotal.WithLabelValues(submitResultSuccess).Inc()
	c.log.Info().Msgf("submitted %s (tx %x)", requestID, req.MessageHash)
	c.publish(&CoordinatorEvent{Type: EventSubmitted, RequestID: requestID, TransactionHash: req.MessageHash})

	return &SubmitResult{
		Success: true,
		TxHash:  req.MessageHash,
		Results: results,
	}
}

// Sweep drops prepared transactions older than the time to live. Concurrent
// calls collapse into one.
func (c *Coordinator) Sweep() (removed int) {
	if !c.sweeping.CompareAndSwap(false, true) {
		return
	}
	defer c.sweeping.Store(false)

	removed, err := c.store.Sweep(c.options.Now().Add(-c.options.TTL))
	if err != nil {
		c.log.Error().Msgf("sweep failed: %+v", err)
		return
	}
	if removed > 0 {
		expiredTotal.Add(float64(removed))
		c.refreshPending()
		c.log.Debug().Msgf("swept %d expired prepared transactions", removed)
		c.publish(&CoordinatorEvent{Type: EventExpired, Count: removed})
	}
	return
}

// Pending returns the number of prepared transactions awaiting submission.
func (c *Coordinator) Pending() (int, error) {
	return c.store.Len()
}

func (c *Coordinator) TTL() time.Duration {
	return c.options.TTL
}

func (c *Coordinator) Start() {
	c.sweeper.Start()
}

func (c *Coordinator) Stop() error {
	c.sweeper.Stop()
	c.events.Close()
	return c.store.Close()
}

// Events delivers lifecycle events until the coordinator stops.
func (c *Coordinator) Events() EventQueue[*CoordinatorEvent] {
	return c.events
}

func (c *Coordinator) publish(event *CoordinatorEvent) {
	event.At = c.options.Now()
	c.events.Broadcast(event)
}

func (c *Coordinator) refreshPending() {
	if n, err := c.store.Len(); err == nil {
		pendingGauge.Set(float64(n))
	}
}

func newRequestID(now time.Time) (string, error) {
	random := make([]byte, 8)
	if _, err := rand.Read(random); err != nil {
		return "", errors.WithStack(err)
	}
	return fmt.Sprintf("%s%d_%s", requestIDPrefix, now.UnixMilli(), base58.Encode(random)), nil
}
