package signer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cometbft/cometbft/crypto/secp256k1"
	"github.com/google/uuid"

	"github.com/guru-fund/fundd/x/fund/types"
)

// Config holds the signer service configuration
type Config struct {
	BatchSize     int           // Maximum payloads per batch submission
	BatchInterval time.Duration // Time interval for batch submission
	APIBaseURL    string        // Fund API URL for submission
	ExpiryWindow  int64         // Blocks a signed payload stays valid
}

// DefaultConfig returns the default signer configuration
func DefaultConfig() *Config {
	return &Config{
		BatchSize:     50,
		BatchInterval: 500 * time.Millisecond,
		APIBaseURL:    "http://localhost:8080",
		ExpiryWindow:  100,
	}
}

// IssuedPayload is a signed payload awaiting submission
type IssuedPayload struct {
	ID        string
	Account   string
	Action    types.ActionType
	Nonce     uint64
	Payload   *types.SignedPayload
	Supplied  string // Base-asset amount accompanying a deposit
	ExpiresAt int64
	CreatedAt time.Time
}

// SignerService signs operation payloads on behalf of the fund operator
// and submits them to the fund API in batches. Nonces are tracked per
// account so consecutive payloads for the same account stay in order.
type SignerService struct {
	config *Config

	privKey secp256k1.PrivKey

	nonces  *NonceCache
	issued  *IssuedIndex
	pending *PayloadBuffer

	submitter PayloadSubmitter

	// Incoming signing requests
	requestCh chan *SignRequest

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// SignRequest asks the service to sign and submit an operation
type SignRequest struct {
	Account  string
	Action   types.ActionType
	Body     interface{}
	Supplied string
	Height   int64 // Current chain height, used to stamp expiry
}

// NewSignerService creates a signer service with a fresh key. Use
// NewSignerServiceWithKey to reuse a persisted key.
func NewSignerService(config *Config, submitter PayloadSubmitter) *SignerService {
	return NewSignerServiceWithKey(config, submitter, secp256k1.GenPrivKey())
}

// NewSignerServiceWithKey creates a signer service with the given key
func NewSignerServiceWithKey(config *Config, submitter PayloadSubmitter, key secp256k1.PrivKey) *SignerService {
	if config == nil {
		config = DefaultConfig()
	}
	if submitter == nil {
		submitter = NewMockSubmitter()
	}

	return &SignerService{
		config:    config,
		privKey:   key,
		nonces:    NewNonceCache(),
		issued:    NewIssuedIndex(),
		pending:   NewPayloadBuffer(config.BatchSize),
		submitter: submitter,
		requestCh: make(chan *SignRequest, 1000),
		stopCh:    make(chan struct{}),
	}
}

// PublicKey returns the compressed secp256k1 public key. Register this
// as the fund's authorized signer.
func (s *SignerService) PublicKey() []byte {
	return s.privKey.PubKey().Bytes()
}

// Start starts the signer service loops
func (s *SignerService) Start(ctx context.Context) error {
	log.Println("Starting payload signer...")

	s.wg.Add(1)
	go s.requestLoop(ctx)

	s.wg.Add(1)
	go s.batchLoop(ctx)

	log.Println("Payload signer started")
	return nil
}

// Stop stops the signer service
func (s *SignerService) Stop() error {
	log.Println("Stopping payload signer...")
	close(s.stopCh)
	s.wg.Wait()
	log.Println("Payload signer stopped")
	return nil
}

// requestLoop processes incoming signing requests
func (s *SignerService) requestLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case req := <-s.requestCh:
			if _, err := s.handleRequest(req); err != nil {
				log.Printf("Error signing request for %s: %v", req.Account, err)
			}
		}
	}
}

// batchLoop periodically submits pending payloads
func (s *SignerService) batchLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.submitPending(ctx)
			return
		case <-s.stopCh:
			s.submitPending(ctx)
			return
		case <-ticker.C:
			s.submitPending(ctx)
		}
	}
}

// submitPending flushes the buffer and submits payloads to the fund API
func (s *SignerService) submitPending(ctx context.Context) {
	payloads := s.pending.Flush()
	if len(payloads) == 0 {
		return
	}

	log.Printf("Submitting %d payloads...", len(payloads))
	if err := s.submitter.SubmitPayloads(ctx, payloads); err != nil {
		log.Printf("Error submitting payloads: %v", err)
		// Re-buffer for retry on the next tick
		for _, p := range payloads {
			s.pending.Add(p)
		}
	}
}

// handleRequest signs a request and buffers it for submission
func (s *SignerService) handleRequest(req *SignRequest) (*IssuedPayload, error) {
	issued, err := s.Sign(req.Account, req.Action, req.Body, req.Height)
	if err != nil {
		return nil, err
	}
	issued.Supplied = req.Supplied

	s.pending.Add(issued)
	return issued, nil
}

// Sign builds and signs a payload for the given account and action.
// The payload's nonce is the account's next tracked nonce and its
// expiry is height plus the configured window.
func (s *SignerService) Sign(account string, action types.ActionType, body interface{}, height int64) (*IssuedPayload, error) {
	data, err := types.EncodeAction(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action body: %w", err)
	}

	nonce := s.nonces.Next(account)
	payload := &types.SignedPayload{
		Data:      data,
		ExpiresAt: height + s.config.ExpiryWindow,
	}

	sig, err := s.privKey.Sign(payload.Digest(action, nonce, account))
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	payload.Signature = sig

	issued := &IssuedPayload{
		ID:        uuid.New().String(),
		Account:   account,
		Action:    action,
		Nonce:     nonce,
		Payload:   payload,
		ExpiresAt: payload.ExpiresAt,
		CreatedAt: time.Now(),
	}
	s.issued.Add(issued)

	return issued, nil
}

// Submit queues a signing request for asynchronous processing
func (s *SignerService) Submit(req *SignRequest) {
	s.requestCh <- req
}

// SyncNonce sets the tracked nonce for an account to the chain's value.
// Call after a rejected submission, since the chain rolls the nonce back
// when an operation fails.
func (s *SignerService) SyncNonce(account string, nonce uint64) {
	s.nonces.Set(account, nonce)
}

// PruneExpired drops issued-payload records whose expiry height has
// passed and returns how many were dropped.
func (s *SignerService) PruneExpired(height int64) int {
	return len(s.issued.PruneExpired(height))
}

// GetIssued returns an issued payload by ID
func (s *SignerService) GetIssued(id string) *IssuedPayload {
	return s.issued.Get(id)
}

// Stats returns signer statistics
type Stats struct {
	TrackedAccounts int
	IssuedCount     int
	PendingCount    int
}

// GetStats returns current signer statistics
func (s *SignerService) GetStats() Stats {
	return Stats{
		TrackedAccounts: s.nonces.Len(),
		IssuedCount:     s.issued.Len(),
		PendingCount:    s.pending.Len(),
	}
}
