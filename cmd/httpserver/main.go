package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/docledger/document-registry-backend/cmd/flags"
	"github.com/docledger/document-registry-backend/docstore"
	"github.com/docledger/document-registry-backend/history"
	"github.com/docledger/document-registry-backend/httpserver"
	"github.com/docledger/document-registry-backend/identity"
	"github.com/docledger/document-registry-backend/interfaces"
	"github.com/docledger/document-registry-backend/lifecycle"
	"github.com/docledger/document-registry-backend/records"
	"github.com/docledger/document-registry-backend/registry"
	"github.com/docledger/document-registry-backend/wallet"
)

const (
	vaultMountPath = "secret"
	vaultKeyField  = "private_key"
)

var serverFlags = append(append([]cli.Flag{
	flags.RPCAddrFlag,
	flags.ContractAddrFlag,
	flags.ChainIDFlag,
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	flags.DatabaseDSNFlag,
	flags.RedisURLFlag,
	flags.HistoryFileFlag,
	flags.StorageURIFlag,
	flags.IdentityURLFlag,
	flags.IdentityAPIKeyFlag,
}, flags.WalletFlags...), flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the document integrity registry API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			ctx := context.Background()

			rpcAddress := cCtx.String(flags.RPCAddrFlag.Name)
			contractHex := cCtx.String(flags.ContractAddrFlag.Name)
			chainID := big.NewInt(cCtx.Int64(flags.ChainIDFlag.Name))
			listenAddr := cCtx.String("listen-addr")

			if !ethcommon.IsHexAddress(contractHex) {
				return fmt.Errorf("invalid contract address: %s", contractHex)
			}
			contractAddr := ethcommon.HexToAddress(contractHex)

			logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
			ethClient, err := ethclient.Dial(rpcAddress)
			if err != nil {
				logger.Error("Failed to dial RPC", "err", err)
				return err
			}

			registryClient, err := registry.NewClient(ethClient, ethClient, contractAddr)
			if err != nil {
				logger.Error("Failed to create registry client", "err", err)
				return err
			}

			provider, closeProvider, err := walletProvider(cCtx, chainID, logger)
			if err != nil {
				logger.Error("Failed to create wallet provider", "err", err)
				return err
			}
			defer closeProvider()

			flagStore := wallet.NewFileFlagStore(cCtx.String(flags.ConnectFlagFileFlag.Name))
			session := wallet.NewSession(provider, flagStore, logger)
			defer session.Close()

			// The registry client follows the wallet session: a connected
			// wallet enables register transactions, a disconnect drops back
			// to read-only verification.
			session.OnChange(func(addr ethcommon.Address, connected bool) {
				if !connected {
					registryClient.ClearTransactOpts()
					return
				}
				auth, err := session.TransactOpts()
				if err != nil {
					logger.Error("Connected session has no transactor", "err", err)
					return
				}
				registryClient.SetTransactOpts(auth)
				logger.Info("Wallet connected", "address", addr.Hex())
			})

			if restored, err := session.Restore(ctx); err != nil {
				logger.Warn("Could not restore wallet session", "err", err)
			} else if restored {
				logger.Info("Wallet session restored")
			} else if _, err := session.Connect(ctx); err != nil {
				logger.Warn("Wallet not connected, registrations disabled until a key is available", "err", err)
			}

			store, closeStore, err := requestStore(ctx, cCtx, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			histStore, err := historyStore(cCtx, logger)
			if err != nil {
				return err
			}

			docs, err := docstore.NewFactory(logger).BackendFor(cCtx.String(flags.StorageURIFlag.Name))
			if err != nil {
				logger.Error("Failed to create document storage backend", "err", err)
				return err
			}
			logger.Info("Document storage ready", "location", docs.LocationURI())

			idp := identityProvider(cCtx, logger)

			service := lifecycle.New(store, registryClient, docs, histStore, logger)
			handler := httpserver.NewHandler(service, idp, logger)

			cfg := flags.ConfigureServer(cCtx, logger, listenAddr)
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create HTTP server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func walletProvider(cCtx *cli.Context, chainID *big.Int, logger *slog.Logger) (wallet.Provider, func(), error) {
	switch cCtx.String(flags.WalletTypeFlag.Name) {
	case "keystore":
		p := wallet.NewKeystoreProvider(
			cCtx.String(flags.KeystoreDirFlag.Name),
			cCtx.String(flags.KeystorePassphraseFlag.Name),
			chainID, logger)
		return p, p.Close, nil
	case "vault":
		p, err := wallet.NewVaultKeyProvider(
			cCtx.String(flags.VaultAddrFlag.Name),
			cCtx.String(flags.VaultTokenFlag.Name),
			vaultMountPath,
			cCtx.String(flags.VaultKeyPathFlag.Name),
			vaultKeyField,
			chainID, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("invalid wallet-type: %s", cCtx.String(flags.WalletTypeFlag.Name))
	}
}

func requestStore(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (interfaces.RequestStore, func(), error) {
	dsn := cCtx.String(flags.DatabaseDSNFlag.Name)
	if dsn == "" {
		logger.Warn("No database DSN configured, using the in-memory request store")
		return records.NewMemoryStore(), func() {}, nil
	}

	store, err := records.NewPostgresStore(ctx, dsn)
	if err != nil {
		logger.Error("Failed to connect to Postgres", "err", err)
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		logger.Error("Failed to ensure database schema", "err", err)
		return nil, nil, err
	}
	logger.Info("Request store ready")
	return store, store.Close, nil
}

func historyStore(cCtx *cli.Context, logger *slog.Logger) (interfaces.HistoryStore, error) {
	redisURL := cCtx.String(flags.RedisURLFlag.Name)
	if redisURL == "" {
		return history.NewFileStore(cCtx.String(flags.HistoryFileFlag.Name), logger), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("Invalid redis URL", "err", err)
		return nil, err
	}
	return history.NewRedisStore(redis.NewClient(opts), "registry:history", logger), nil
}

func identityProvider(cCtx *cli.Context, logger *slog.Logger) interfaces.IdentityProvider {
	identityURL := cCtx.String(flags.IdentityURLFlag.Name)
	if identityURL == "" {
		logger.Warn("No identity service configured, using built-in static accounts")
		provider := identity.NewStaticProvider()
		provider.AddUser("admin@localhost", "admin", interfaces.RoleAdmin)
		provider.AddUser("student@localhost", "student", "student")
		return provider
	}
	return &identity.Client{
		BaseURL: strings.TrimSuffix(identityURL, "/"),
		APIKey:  cCtx.String(flags.IdentityAPIKeyFlag.Name),
	}
}
