package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	vault "github.com/hashicorp/vault/api"
	"math/big"

	"github.com/docledger/document-registry-backend/interfaces"
)

// VaultKeyProvider is a signing provider that reads a hex-encoded signing
// key from a HashiCorp Vault KV v2 secret. Authorization is held by Vault:
// if the token can read the secret, the account is available without any
// prompt, so both Accounts and RequestAccounts resolve the same way.
type VaultKeyProvider struct {
	client    *vault.Client
	mountPath string
	keyPath   string
	field     string
	chainID   *big.Int
	log       *slog.Logger

	mu   sync.Mutex
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewVaultKeyProvider connects to Vault at the given address using token
// authentication. field names the secret key holding the hex private key.
func NewVaultKeyProvider(address, token, mountPath, keyPath, field string, chainID *big.Int, log *slog.Logger) (*VaultKeyProvider, error) {
	config := vault.DefaultConfig()
	config.Address = address

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("creating vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultKeyProvider{
		client:    client,
		mountPath: mountPath,
		keyPath:   keyPath,
		field:     field,
		chainID:   chainID,
		log:       log,
	}, nil
}

func (p *VaultKeyProvider) loadKey(ctx context.Context) (*ecdsa.PrivateKey, common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key != nil {
		return p.key, p.addr, nil
	}

	secret, err := p.client.KVv2(p.mountPath).Get(ctx, p.keyPath)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: reading signing key from vault: %v", interfaces.ErrNoProvider, err)
	}

	raw, ok := secret.Data[p.field].(string)
	if !ok || raw == "" {
		return nil, common.Address{}, fmt.Errorf("%w: vault secret %s has no %q field", interfaces.ErrNoProvider, p.keyPath, p.field)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: invalid signing key in vault: %v", interfaces.ErrNoProvider, err)
	}

	p.key = key
	p.addr = crypto.PubkeyToAddress(key.PublicKey)
	p.log.Debug("loaded signing key from vault", "address", p.addr.Hex())
	return p.key, p.addr, nil
}

// Accounts returns the Vault-held account. Reading the secret is the only
// authorization step and involves no prompt.
func (p *VaultKeyProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	_, addr, err := p.loadKey(ctx)
	if err != nil {
		return nil, err
	}
	return []common.Address{addr}, nil
}

// RequestAccounts behaves like Accounts; Vault has no interactive consent.
func (p *VaultKeyProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.Accounts(ctx)
}

// SignerFor returns transaction options signing with the Vault-held key.
func (p *VaultKeyProvider) SignerFor(ctx context.Context, address common.Address) (*bind.TransactOpts, error) {
	key, addr, err := p.loadKey(ctx)
	if err != nil {
		return nil, err
	}
	if addr != address {
		return nil, fmt.Errorf("%w: vault holds key for %s, not %s", interfaces.ErrUserRejected, addr.Hex(), address.Hex())
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("creating transactor: %w", err)
	}
	return markSignerRejections(auth), nil
}

// OnAccountsChanged is a no-op: a Vault-held key does not change out from
// under the process.
func (p *VaultKeyProvider) OnAccountsChanged(cb func([]common.Address)) func() {
	return func() {}
}
