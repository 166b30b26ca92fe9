package wallet

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/document-registry-backend/interfaces"
)

type fakeProvider struct {
	mu            sync.Mutex
	accounts      []common.Address
	requestErr    error
	signerErr     error
	requestCalls  int
	accountsCalls int
	block         chan struct{}
	cbs           []func([]common.Address)
}

func (f *fakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountsCalls++
	return f.accounts, nil
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	f.requestCalls++
	block := f.block
	err := f.requestErr
	accounts := f.accounts
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (f *fakeProvider) SignerFor(ctx context.Context, address common.Address) (*bind.TransactOpts, error) {
	if f.signerErr != nil {
		return nil, f.signerErr
	}
	return &bind.TransactOpts{From: address}, nil
}

func (f *fakeProvider) OnAccountsChanged(cb func([]common.Address)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cbs = append(f.cbs, cb)
	return func() {}
}

func (f *fakeProvider) emit(accounts []common.Address) {
	f.mu.Lock()
	cbs := append([]func([]common.Address){}, f.cbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(accounts)
	}
}

var (
	addrOne = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrTwo = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestSession(provider Provider) (*Session, *MemoryFlagStore) {
	flags := &MemoryFlagStore{}
	return NewSession(provider, flags, slog.Default()), flags
}

func TestSessionConnect(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, flags := newTestSession(provider)

	var notified []common.Address
	session.OnChange(func(addr common.Address, connected bool) {
		require.True(t, connected)
		// The subscriber-visible address must match CurrentAddress at the
		// instant of notification.
		current, ok := session.CurrentAddress()
		require.True(t, ok)
		require.Equal(t, addr, current)
		notified = append(notified, addr)
	})

	addr, err := session.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, addrOne, addr)
	assert.Equal(t, Connected, session.State())
	assert.True(t, flags.WasConnected())
	assert.Equal(t, []common.Address{addrOne}, notified)

	auth, err := session.TransactOpts()
	require.NoError(t, err)
	assert.Equal(t, addrOne, auth.From)
}

func TestSessionConnectNoProvider(t *testing.T) {
	session, flags := newTestSession(nil)

	_, err := session.Connect(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrNoProvider)
	assert.Equal(t, Disconnected, session.State())
	assert.False(t, flags.WasConnected())
}

func TestSessionConnectRejected(t *testing.T) {
	provider := &fakeProvider{requestErr: interfaces.ErrUserRejected}
	session, flags := newTestSession(provider)

	_, err := session.Connect(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrUserRejected)
	assert.Equal(t, Disconnected, session.State())
	assert.False(t, flags.WasConnected())

	_, err = session.TransactOpts()
	assert.ErrorIs(t, err, interfaces.ErrWalletNotConnected)
}

func TestSessionConnectSingleFlight(t *testing.T) {
	provider := &fakeProvider{
		accounts: []common.Address{addrOne},
		block:    make(chan struct{}),
	}
	session, _ := newTestSession(provider)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := session.Connect(context.Background())
			results <- err
		}()
	}

	// Let both goroutines reach the in-flight attempt, then release it.
	time.Sleep(50 * time.Millisecond)
	close(provider.block)

	require.NoError(t, <-results)
	require.NoError(t, <-results)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Equal(t, 1, provider.requestCalls, "second caller should join the in-flight attempt")
}

func TestSessionRestoreWithoutFlag(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, _ := newTestSession(provider)

	restored, err := session.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, Disconnected, session.State())

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Zero(t, provider.requestCalls, "restore must not prompt for authorization")
	assert.Zero(t, provider.accountsCalls, "restore without the flag must not touch the provider")
}

func TestSessionRestoreWithFlag(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, flags := newTestSession(provider)
	flags.SetConnected(true)

	restored, err := session.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, restored)
	assert.Equal(t, Connected, session.State())

	addr, ok := session.CurrentAddress()
	require.True(t, ok)
	assert.Equal(t, addrOne, addr)

	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.Zero(t, provider.requestCalls, "restore must not prompt for authorization")
}

func TestSessionRestoreClearsStaleFlag(t *testing.T) {
	provider := &fakeProvider{}
	session, flags := newTestSession(provider)
	flags.SetConnected(true)

	restored, err := session.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.Equal(t, Disconnected, session.State())
	assert.False(t, flags.WasConnected())
}

func TestSessionDisconnect(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, flags := newTestSession(provider)

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	var gotConnected []bool
	session.OnChange(func(addr common.Address, connected bool) {
		gotConnected = append(gotConnected, connected)
	})

	session.Disconnect()
	assert.Equal(t, Disconnected, session.State())
	assert.False(t, flags.WasConnected())
	assert.Equal(t, []bool{false}, gotConnected)

	_, ok := session.CurrentAddress()
	assert.False(t, ok)
}

func TestSessionExternalAccountSwitch(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, flags := newTestSession(provider)

	_, err := session.Connect(context.Background())
	require.NoError(t, err)

	var notified []common.Address
	session.OnChange(func(addr common.Address, connected bool) {
		notified = append(notified, addr)
	})

	provider.emit([]common.Address{addrTwo})
	addr, ok := session.CurrentAddress()
	require.True(t, ok)
	assert.Equal(t, addrTwo, addr)
	assert.Equal(t, []common.Address{addrTwo}, notified)

	// Empty account set disconnects but keeps the flag so a later restore
	// can pick the account back up.
	provider.emit(nil)
	assert.Equal(t, Disconnected, session.State())
	assert.True(t, flags.WasConnected())
	assert.Len(t, notified, 2)
}

func TestSessionSubscriberFaultIsolation(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, _ := newTestSession(provider)

	session.OnChange(func(addr common.Address, connected bool) {
		panic("boom")
	})
	var secondNotified bool
	session.OnChange(func(addr common.Address, connected bool) {
		secondNotified = true
	})

	_, err := session.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, secondNotified, "a failing subscriber must not block the rest")
}

func TestSessionUnsubscribe(t *testing.T) {
	provider := &fakeProvider{accounts: []common.Address{addrOne}}
	session, _ := newTestSession(provider)

	var calls int
	unsub := session.OnChange(func(addr common.Address, connected bool) {
		calls++
	})
	unsub()

	_, err := session.Connect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, calls)
}
