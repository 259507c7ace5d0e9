package accumulate

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"filippo.io/edwards25519"
	"github.com/pkg/errors"
)

// ExpandEd25519PrivateKey turns a 32 byte seed into the 64 byte seed and
// public key form crypto/ed25519 signs with. Longer keys are left as is.
func ExpandEd25519PrivateKey(private *ed25519.PrivateKey) {
	if len(*private) == ed25519.SeedSize {
		pub, err := Ed25519PublicKeyFromSeed(*private)
		if err != nil {
			return
		}
		expanded := make(ed25519.PrivateKey, 0, ed25519.PrivateKeySize)
		expanded = append(expanded, *private...)
		*private = append(expanded, pub...)
	}
}

// Ed25519PublicKeyFromSeed computes the public key for a clamped seed scalar.
func Ed25519PublicKeyFromSeed(seed []byte) (pub ed25519.PublicKey, err error) {
	if len(seed) != ed25519.SeedSize {
		err = errors.Wrapf(ErrInvalidPublicKey, "expected %d byte seed, got %d", ed25519.SeedSize, len(seed))
		return
	}
	digest := sha512.Sum512(seed)
	var scalar edwards25519.Scalar
	if _, err = scalar.SetBytesWithClamping(digest[:32]); err != nil {
		err = errors.WithStack(err)
		return
	}
	var p edwards25519.Point
	p.ScalarBaseMult(&scalar)
	return p.Bytes(), nil
}

func Sha256(chunks ...[]byte) []byte {
	h := sha256.New()
	for _, chunk := range chunks {
		h.Write(chunk)
	}
	return h.Sum(nil)
}

// HexBytes marshals to and from a hex JSON string.
type HexBytes []byte

func (h HexBytes) String() string {
	return hex.EncodeToString(h)
}

func (h HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(h))
}

func (h *HexBytes) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err = json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return errors.Wrapf(err, "invalid hex '%s'", s)
	}
	*h = decoded
	return
}

func ParseHexBytes(s string) (HexBytes, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex '%s'", s)
	}
	return b, nil
}

func NewPeriodicCaller(interval time.Duration, fn func()) *PeriodicCaller {
	return &PeriodicCaller{
		interval: interval,
		fn:       fn,
	}
}

// PeriodicCaller runs fn every interval until stopped. Postpone pushes the
// next call back by a full interval.
type PeriodicCaller struct {
	interval time.Duration
	fn       func()
	mu       sync.Mutex
	timer    *time.Timer
	running  atomic.Bool
}

func (p *PeriodicCaller) Start() {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *PeriodicCaller) tick() {
	if !p.running.Load() {
		return
	}
	p.fn()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running.Load() {
		p.timer.Reset(p.interval)
	}
}

func (p *PeriodicCaller) Postpone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running.Load() && p.timer != nil {
		p.timer.Reset(p.interval)
	}
}

func (p *PeriodicCaller) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
	}
}
