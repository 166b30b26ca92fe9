package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"

	"github.com/docledger/document-registry-backend/interfaces"
)

// KeystoreProvider is a signing provider backed by a go-ethereum encrypted
// keystore directory. Authorization is the configured passphrase: accounts
// count as already-authorized once they can be unlocked with it, so
// Session.Restore works across restarts without any interactive step.
type KeystoreProvider struct {
	ks         *keystore.KeyStore
	passphrase string
	chainID    *big.Int
	log        *slog.Logger

	mu          sync.Mutex
	subscribers map[int]func([]common.Address)
	nextSubID   int
	eventSub    event.Subscription
	events      chan accounts.WalletEvent
}

// NewKeystoreProvider opens the keystore directory with standard scrypt
// parameters.
func NewKeystoreProvider(dir, passphrase string, chainID *big.Int, log *slog.Logger) *KeystoreProvider {
	return &KeystoreProvider{
		ks:          keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		passphrase:  passphrase,
		chainID:     chainID,
		log:         log,
		subscribers: make(map[int]func([]common.Address)),
	}
}

// Accounts returns the keystore's accounts if the configured passphrase can
// unlock the first of them. No passphrase configured means nothing is
// pre-authorized.
func (p *KeystoreProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	if p.passphrase == "" {
		return nil, nil
	}
	all := p.ks.Accounts()
	if len(all) == 0 {
		return nil, nil
	}
	if err := p.ks.Unlock(all[0], p.passphrase); err != nil {
		return nil, nil
	}
	return accountAddresses(all), nil
}

// RequestAccounts unlocks the first keystore account with the configured
// passphrase. A wrong passphrase is the local analogue of the user declining
// authorization.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	all := p.ks.Accounts()
	if len(all) == 0 {
		return nil, nil
	}
	if err := p.ks.Unlock(all[0], p.passphrase); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrUserRejected, err)
	}
	return accountAddresses(all), nil
}

// SignerFor returns keystore-backed transaction options for the address.
func (p *KeystoreProvider) SignerFor(ctx context.Context, address common.Address) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyStoreTransactorWithChainID(p.ks, accounts.Account{Address: address}, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrNoProvider, err)
	}
	return markSignerRejections(auth), nil
}

// OnAccountsChanged subscribes to keystore wallet arrival/drop events,
// delivered as the full current account list.
func (p *KeystoreProvider) OnAccountsChanged(cb func([]common.Address)) func() {
	p.mu.Lock()
	if p.eventSub == nil {
		p.events = make(chan accounts.WalletEvent, 16)
		p.eventSub = p.ks.Subscribe(p.events)
		go p.forwardEvents()
	}
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = cb
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Close stops forwarding keystore events.
func (p *KeystoreProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eventSub != nil {
		p.eventSub.Unsubscribe()
		p.eventSub = nil
	}
}

func (p *KeystoreProvider) forwardEvents() {
	for range p.events {
		current := accountAddresses(p.ks.Accounts())

		p.mu.Lock()
		subs := make([]func([]common.Address), 0, len(p.subscribers))
		for _, cb := range p.subscribers {
			subs = append(subs, cb)
		}
		p.mu.Unlock()

		p.log.Debug("keystore account set changed", "accounts", len(current))
		for _, cb := range subs {
			cb(current)
		}
	}
}

func accountAddresses(accs []accounts.Account) []common.Address {
	out := make([]common.Address, 0, len(accs))
	for _, a := range accs {
		out = append(out, a.Address)
	}
	return out
}
