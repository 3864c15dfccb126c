package messaging

import (
	"context"
	"crypto/rsa"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/models"
)

// Content markers substituted for records that cannot be displayed.
const (
	IntegrityFailedMarker = "[Message integrity check failed]"
	DecryptErrorMarker    = "[Encryption Error]"
)

// State is the terminal outcome of one record's trip through the pipeline.
type State int

const (
	// StateNoCiphertext: the record has no complete ciphertext triple; the
	// plaintext mirror passes through unchanged.
	StateNoCiphertext State = iota
	// StateIntegrityFailed: the tag did not verify; content replaced with
	// IntegrityFailedMarker, ciphertext fields preserved.
	StateIntegrityFailed
	// StateKeyUnavailable: the reader holds no usable private key for this
	// record's wrapping; the mirror passes through.
	StateKeyUnavailable
	// StateDecrypted: unwrap and decrypt succeeded; content is the plaintext,
	// encrypted fields retained for audit.
	StateDecrypted
	// StateDecryptFailed: unwrap or decrypt failed; content falls back to the
	// mirror, or DecryptErrorMarker when there is none.
	StateDecryptFailed
)

func (s State) String() string {
	switch s {
	case StateNoCiphertext:
		return "no-ciphertext"
	case StateIntegrityFailed:
		return "integrity-failed"
	case StateKeyUnavailable:
		return "key-unavailable"
	case StateDecrypted:
		return "decrypted"
	case StateDecryptFailed:
		return "decrypt-failed"
	}
	return "unknown"
}

// Pipeline turns a batch of fetched encrypted records into display-ready
// records. Records are independent: they are processed concurrently up to a
// worker limit, no single record's failure aborts the batch, and only the
// fetched copies are mutated, never storage.
type Pipeline struct {
	secret []byte
	limit  int
}

// NewPipeline builds a pipeline with the server-wide integrity secret.
// maxParallel <= 0 bounds the fan-out at the number of CPUs, since the
// per-record work is cipher-bound.
func NewPipeline(secret []byte, maxParallel int) *Pipeline {
	if maxParallel <= 0 {
		maxParallel = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{secret: secret, limit: maxParallel}
}

// Run processes the batch in place and returns one state per record, in input
// order. reader is the private key available to the requester; nil means the
// reader holds no key for this batch. On context cancellation the partially
// processed batch is safe to discard and an error is returned.
func (p *Pipeline) Run(ctx context.Context, batch []*models.Envelope, reader *rsa.PrivateKey) ([]State, error) {
	states := make([]State, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := range batch {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			states[i] = p.process(batch[i], reader)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

func (p *Pipeline) process(env *models.Envelope, reader *rsa.PrivateKey) State {
	if !env.Sealed() {
		return StateNoCiphertext
	}

	ciphertext := *env.EncryptedMessage
	if env.HMAC != nil && *env.HMAC != "" && len(p.secret) > 0 {
		if !crypto.Verify(ciphertext, *env.HMAC, p.secret) {
			marker := IntegrityFailedMarker
			env.Content = &marker
			return StateIntegrityFailed
		}
	}

	if reader == nil {
		return StateKeyUnavailable
	}

	key, err := crypto.UnwrapKey(*env.EncryptedAESKey, reader)
	if err != nil {
		return p.fallback(env)
	}
	plaintext, ok := crypto.Decrypt(ciphertext, key, *env.IV)
	if !ok {
		return p.fallback(env)
	}

	env.Content = &plaintext
	return StateDecrypted
}

func (p *Pipeline) fallback(env *models.Envelope) State {
	if env.Content == nil || *env.Content == "" {
		marker := DecryptErrorMarker
		env.Content = &marker
	}
	return StateDecryptFailed
}
