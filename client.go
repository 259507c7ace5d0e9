package accumulate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type ClientOptions struct {
	Network       Network
	Endpoint      string
	Transport     Transport
	Store         PreparedStore
	PreparedTTL   time.Duration
	SweepInterval time.Duration
}

func (o *ClientOptions) setDefaults() {
	if o.Network == "" {
		o.Network = defaultClientOptions.Network
	}

	if o.PreparedTTL <= 0 {
		o.PreparedTTL = defaultClientOptions.PreparedTTL
	}

	if o.SweepInterval <= 0 {
		o.SweepInterval = defaultClientOptions.SweepInterval
	}

	if o.Store == nil {
		o.Store = NewInMemoryPreparedStore()
	}
}

var defaultClientOptions = &ClientOptions{
	Network:       NetworkMainNet,
	PreparedTTL:   DefaultPreparedTTL,
	SweepInterval: DefaultSweepInterval,
}

func NewClient(options *ClientOptions) (client *Client, err error) {
	if options == nil {
		options = &ClientOptions{}
	}
	options.setDefaults()

	params, err := options.Network.Params()
	if err != nil {
		return
	}

	if options.Endpoint == "" {
		options.Endpoint = params.Endpoint
	}

	if options.Transport == nil {
		options.Transport = NewJsonRpcTransport(options.Endpoint)
	}

	coordinator, err := NewCoordinator(&CoordinatorOptions{
		Store:         options.Store,
		Submitter:     options.Transport,
		Querier:       options.Transport,
		TTL:           options.PreparedTTL,
		SweepInterval: options.SweepInterval,
	})
	if err != nil {
		return
	}

	client = &Client{
		options:     options,
		params:      params,
		transport:   options.Transport,
		builder:     NewSignatureBuilder(defaultEncoder),
		clock:       NewTimestampClock(),
		coordinator: coordinator,
		log:         Log(),
	}

	return
}

// Client signs and submits transactions, either locally or in two phases
// through its Coordinator.
type Client struct {
	options     *ClientOptions
	params      *NetworkParams
	transport   Transport
	builder     *SignatureBuilder
	clock       *TimestampClock
	coordinator *Coordinator
	log         *zerolog.Logger
}

func (c *Client) Start() {
	c.log.Info().Msgf("starting client for %s (%s)", c.params.Name, c.options.Endpoint)
	c.coordinator.Start()
}

func (c *Client) Stop() (err error) {
	c.log.Info().Msg("stopping client")
	return c.coordinator.Stop()
}

// Endpoint is the API endpoint transactions are submitted to.
func (c *Client) Endpoint() string {
	return c.options.Endpoint
}

func (c *Client) Coordinator() *Coordinator {
	return c.coordinator
}

// Sign signs tx locally. A missing timestamp is taken from the client clock,
// which never issues the same value twice.
func (c *Client) Sign(ctx context.Context, tx *Transaction, signer Signer, opts SignOptions) (Signature, error) {
	if opts.Timestamp == 0 {
		opts.Timestamp = c.clock.Next()
	}
	return c.builder.Sign(ctx, tx, signer, opts)
}

// Execute signs tx and submits it with its signature.
func (c *Client) Execute(ctx context.Context, tx *Transaction, signer Signer, opts SignOptions) (result *SubmitResult, err error) {
	sig, err := c.Sign(ctx, tx, signer, opts)
	if err != nil {
		return
	}

	hash, err := tx.Hash()
	if err != nil {
		return
	}

	results, err := c.transport.Submit(ctx, &Envelope{
		Signatures:  []Signature{sig},
		Transaction: []*Transaction{tx},
	})

	result = &SubmitResult{
		Success: err == nil,
		TxHash:  hash,
		Results: results,
	}
	if err != nil {
		result.Error = err.Error()
		result.Err = err
	}

	return
}

func (c *Client) Prepare(ctx context.Context, in *PrepareInput) *PrepareResult {
	return c.coordinator.Prepare(ctx, in)
}

func (c *Client) Submit(ctx context.Context, requestID string, signature, publicKey []byte) *SubmitResult {
	return c.coordinator.Submit(ctx, requestID, signature, publicKey)
}
