// Package registry provides the client for the on-chain document registry
// contract: fee-costing registration of (docId, hash) pairs and free
// read-only verification.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/docledger/document-registry-backend/bindings/docregistry"
	"github.com/docledger/document-registry-backend/interfaces"
)

// Client implements interfaces.DocumentRegistry against a deployed
// DocumentRegistry contract. The contract address and ABI are fixed at
// construction; the transactor is supplied by the wallet session and may
// come and go as the session connects and disconnects, on a different
// goroutine than in-flight Register calls.
type Client struct {
	contract *docregistry.Docregistry
	client   bind.ContractBackend
	backend  bind.DeployBackend
	address  common.Address

	mu   sync.Mutex
	auth *bind.TransactOpts
}

// NewClient creates a registry client for the contract at the given address.
// It requires a ContractBackend for reads and a DeployBackend for waiting on
// transaction inclusion.
func NewClient(client bind.ContractBackend, backend bind.DeployBackend, address common.Address) (*Client, error) {
	contract, err := docregistry.NewDocregistry(address, client)
	if err != nil {
		return nil, err
	}

	return &Client{
		contract: contract,
		client:   client,
		backend:  backend,
		address:  address,
	}, nil
}

// SetTransactOpts sets the transaction options used for registrations. The
// wallet session calls this on connect and account switch.
func (c *Client) SetTransactOpts(auth *bind.TransactOpts) {
	c.mu.Lock()
	c.auth = auth
	c.mu.Unlock()
}

// ClearTransactOpts drops the transactor. Subsequent Register calls fail
// with ErrWalletNotConnected until a new one is set.
func (c *Client) ClearTransactOpts() {
	c.mu.Lock()
	c.auth = nil
	c.mu.Unlock()
}

// transactOpts snapshots the current transactor under the lock. Register
// works on the copy so a concurrent account switch cannot tear it.
func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.auth == nil {
		return nil, interfaces.ErrWalletNotConnected
	}
	auth := *c.auth
	auth.Context = ctx
	return &auth, nil
}

// Address returns the bound contract address.
func (c *Client) Address() common.Address {
	return c.address
}

// Register submits registerDocument(derivedId, hash, uri) and waits for the
// transaction to be included. The client never deduplicates: every call
// submits a new transaction.
func (c *Client) Register(ctx context.Context, docID string, digest interfaces.Digest, uri string) (*interfaces.TransactionReceipt, error) {
	if docID == "" {
		return nil, fmt.Errorf("%w: document id is required", interfaces.ErrValidation)
	}
	hash, err := digest.Bytes()
	if err != nil {
		return nil, err
	}
	auth, err := c.transactOpts(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.RegisterDocument(auth, interfaces.DeriveDocumentID(docID), hash, uri)
	if err != nil {
		if errors.Is(err, interfaces.ErrSubmissionRejected) || errors.Is(err, interfaces.ErrUserRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: submitting registration: %v", interfaces.ErrChain, err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for inclusion of %s: %v", interfaces.ErrChain, tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s reverted", interfaces.ErrChain, tx.Hash().Hex())
	}

	return &interfaces.TransactionReceipt{
		TxHash:         tx.Hash().Hex(),
		BlockConfirmed: true,
	}, nil
}

// Verify checks the ledger's stored hash for docID against digest. It needs
// no signer; an unregistered document yields false with no error.
func (c *Client) Verify(ctx context.Context, docID string, digest interfaces.Digest) (bool, error) {
	if docID == "" {
		return false, fmt.Errorf("%w: document id is required", interfaces.ErrValidation)
	}
	hash, err := digest.Bytes()
	if err != nil {
		return false, err
	}

	opts := &bind.CallOpts{Context: ctx}
	match, err := c.contract.VerifyDocument(opts, interfaces.DeriveDocumentID(docID), hash)
	if err != nil {
		return false, fmt.Errorf("%w: reading registration: %v", interfaces.ErrChain, err)
	}
	return match, nil
}

// Factory creates registry clients for different contract addresses sharing
// one chain connection.
type Factory struct {
	client  bind.ContractBackend
	backend bind.DeployBackend
}

// NewFactory creates a new factory for registry clients.
func NewFactory(client bind.ContractBackend, backend bind.DeployBackend) *Factory {
	return &Factory{client: client, backend: backend}
}

// ClientFor returns a registry client bound to the given contract address.
func (f *Factory) ClientFor(address common.Address) (*Client, error) {
	return NewClient(f.client, f.backend, address)
}
