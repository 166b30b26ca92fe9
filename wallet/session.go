// Package wallet manages the signing identity used for state-changing ledger
// operations: connecting to a signing provider, restoring a previous
// connection across restarts, and notifying subscribers of address changes.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/docledger/document-registry-backend/interfaces"
)

// State is the connection state of the wallet session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Provider is the signing-provider boundary. A provider exposes exactly the
// three capabilities the session needs: querying already-authorized accounts,
// requesting account access, and account-change events.
type Provider interface {
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)

	// RequestAccounts requests account access and may prompt or unlock.
	// Returns interfaces.ErrUserRejected if authorization is declined.
	RequestAccounts(ctx context.Context) ([]common.Address, error)

	// SignerFor returns transaction options signing for the given address.
	SignerFor(ctx context.Context, address common.Address) (*bind.TransactOpts, error)

	// OnAccountsChanged subscribes to external account-set changes. The
	// returned function unsubscribes.
	OnAccountsChanged(cb func(accounts []common.Address)) func()
}

// Subscriber receives address-change notifications. connected is false when
// the session transitioned to Disconnected, in which case address is zero.
type Subscriber func(address common.Address, connected bool)

// Session is the wallet session state machine. At most one address is
// current at any time, and the value delivered to subscribers is always
// consistent with CurrentAddress at the instant of notification. The
// session is a process-wide singleton: components needing a signer must go
// through it rather than caching their own.
type Session struct {
	provider Provider
	flags    FlagStore
	log      *slog.Logger

	// emitMu serializes transitions so notifications are delivered in the
	// order state changes occur.
	emitMu sync.Mutex

	mu             sync.Mutex
	state          State
	address        common.Address
	auth           *bind.TransactOpts
	inFlight       chan struct{}
	lastConnectErr error
	subscribers    []subscription
	nextSubID      int
	unsubProvider  func()
}

type subscription struct {
	id int
	cb Subscriber
}

// NewSession creates a wallet session. provider may be nil, in which case
// Connect fails with ErrNoProvider and Restore is a no-op. The session
// subscribes to the provider's account-change events immediately.
func NewSession(provider Provider, flags FlagStore, log *slog.Logger) *Session {
	s := &Session{
		provider: provider,
		flags:    flags,
		log:      log,
	}
	if provider != nil {
		s.unsubProvider = provider.OnAccountsChanged(s.handleAccountsChanged)
	}
	return s
}

// Close detaches the session from the provider's account-change events.
func (s *Session) Close() {
	if s.unsubProvider != nil {
		s.unsubProvider()
		s.unsubProvider = nil
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentAddress returns the current signing address, if connected.
func (s *Session) CurrentAddress() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address, s.state == Connected
}

// TransactOpts returns the transactor for the current address, or
// ErrWalletNotConnected.
func (s *Session) TransactOpts() (*bind.TransactOpts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected || s.auth == nil {
		return nil, interfaces.ErrWalletNotConnected
	}
	return s.auth, nil
}

// OnChange registers a subscriber for address-change notifications and
// returns an unsubscribe function. A subscriber panicking does not prevent
// other subscribers from being notified.
func (s *Session) OnChange(cb Subscriber) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscription{id: id, cb: cb})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}
}

// Connect establishes a signing session. A connect already in flight is
// joined rather than raced: the second caller waits for the first attempt's
// outcome. On success the "was connected" flag is persisted and subscribers
// are notified synchronously before Connect returns.
func (s *Session) Connect(ctx context.Context) (common.Address, error) {
	s.mu.Lock()
	switch {
	case s.state == Connected:
		addr := s.address
		s.mu.Unlock()
		return addr, nil
	case s.inFlight != nil:
		done := s.inFlight
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return common.Address{}, ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == Connected {
			return s.address, nil
		}
		return common.Address{}, s.lastConnectErr
	}

	done := make(chan struct{})
	s.inFlight = done
	s.state = Connecting
	s.mu.Unlock()

	addr, auth, err := s.establish(ctx)

	if err != nil {
		s.mu.Lock()
		s.inFlight = nil
		s.lastConnectErr = err
		s.state = Disconnected
		s.mu.Unlock()
		close(done)
		return common.Address{}, err
	}

	s.transition(Connected, addr, auth)
	s.flags.SetConnected(true)

	s.mu.Lock()
	s.inFlight = nil
	s.lastConnectErr = nil
	s.mu.Unlock()
	close(done)

	return addr, nil
}

// establish performs the provider interaction for a connect attempt.
func (s *Session) establish(ctx context.Context) (common.Address, *bind.TransactOpts, error) {
	if s.provider == nil {
		return common.Address{}, nil, interfaces.ErrNoProvider
	}

	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return common.Address{}, nil, err
	}
	if len(accounts) == 0 {
		return common.Address{}, nil, fmt.Errorf("%w: provider returned no accounts", interfaces.ErrUserRejected)
	}

	addr := accounts[0]
	auth, err := s.provider.SignerFor(ctx, addr)
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, auth, nil
}

// Restore reconnects without prompting: if the "was connected" flag is set
// and the provider reports at least one already-authorized account, the
// session transitions directly to Connected. Otherwise it stays
// Disconnected and the flag is cleared.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.provider == nil || !s.flags.WasConnected() {
		return false, nil
	}

	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		s.flags.SetConnected(false)
		return false, fmt.Errorf("querying authorized accounts: %w", err)
	}
	if len(accounts) == 0 {
		s.flags.SetConnected(false)
		return false, nil
	}

	addr := accounts[0]
	auth, err := s.provider.SignerFor(ctx, addr)
	if err != nil {
		s.flags.SetConnected(false)
		return false, fmt.Errorf("restoring signer: %w", err)
	}

	s.transition(Connected, addr, auth)
	return true, nil
}

// Disconnect drops the signing session and clears the "was connected" flag.
// Provider-side authorization is not revoked; that is outside this client's
// control.
func (s *Session) Disconnect() {
	s.flags.SetConnected(false)
	s.transition(Disconnected, common.Address{}, nil)
}

// handleAccountsChanged reacts to the provider reporting a different or
// empty account set. This is an asynchronous external signal, delivered
// whether or not a local Connect is in flight. An empty set disconnects the
// session but keeps the "was connected" flag, so a later Restore can pick
// the account back up once the provider re-authorizes it.
func (s *Session) handleAccountsChanged(accounts []common.Address) {
	if len(accounts) == 0 {
		s.mu.Lock()
		wasConnected := s.state == Connected
		s.mu.Unlock()
		if wasConnected {
			s.transition(Disconnected, common.Address{}, nil)
		}
		return
	}

	addr := accounts[0]
	s.mu.Lock()
	if s.state == Connected && s.address == addr {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	auth, err := s.provider.SignerFor(context.Background(), addr)
	if err != nil {
		s.log.Error("could not rebuild signer after account switch", "err", err, "address", addr.Hex())
		s.transition(Disconnected, common.Address{}, nil)
		return
	}
	s.transition(Connected, addr, auth)
}

// transition applies a state change and fans it out to subscribers.
// Notifications run synchronously and in transition order.
func (s *Session) transition(state State, addr common.Address, auth *bind.TransactOpts) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.state = state
	s.address = addr
	s.auth = auth
	subs := make([]subscription, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subs {
		s.notifyOne(sub.cb, addr, state == Connected)
	}
}

func (s *Session) notifyOne(cb Subscriber, addr common.Address, connected bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("wallet subscriber failed", "err", r)
		}
	}()
	cb(addr, connected)
}
