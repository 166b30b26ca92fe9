// Package flags collects the CLI flags shared across the project's binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/docledger/document-registry-backend/common"
	"github.com/docledger/document-registry-backend/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var RPCAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Value: "http://127.0.0.1:8545",
	Usage: "address to connect to RPC",
}

var ContractAddrFlag = &cli.StringFlag{
	Name:     "contract-address",
	Required: true,
	Usage:    "document registry contract address, 0x-prefixed hex",
}

var ChainIDFlag = &cli.Int64Flag{
	Name:  "chain-id",
	Value: 1337,
	Usage: "chain id used for transaction signing",
}

var WalletTypeFlag = &cli.StringFlag{
	Name:  "wallet-type",
	Value: "keystore",
	Usage: "signing key source: 'keystore' or 'vault'",
}

var KeystoreDirFlag = &cli.StringFlag{
	Name:  "keystore-dir",
	Value: "./keystore",
	Usage: "directory holding the encrypted signing keys",
}

var KeystorePassphraseFlag = &cli.StringFlag{
	Name:    "keystore-passphrase",
	Value:   "",
	Usage:   "passphrase authorizing the keystore signing key",
	EnvVars: []string{"KEYSTORE_PASSPHRASE"},
}

var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Value:   "http://127.0.0.1:8200",
	Usage:   "Vault server address",
	EnvVars: []string{"VAULT_ADDR"},
}

var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Value:   "",
	Usage:   "Vault authentication token",
	EnvVars: []string{"VAULT_TOKEN"},
}

var VaultKeyPathFlag = &cli.StringFlag{
	Name:  "vault-key-path",
	Value: "registry/signer",
	Usage: "KV v2 path of the secret holding the signing key",
}

var DatabaseDSNFlag = &cli.StringFlag{
	Name:    "database-dsn",
	Value:   "",
	Usage:   "Postgres DSN for the request store; empty uses the in-memory store",
	EnvVars: []string{"DATABASE_DSN"},
}

var RedisURLFlag = &cli.StringFlag{
	Name:    "redis-url",
	Value:   "",
	Usage:   "Redis URL for the shared history cache; empty uses a local file",
	EnvVars: []string{"REDIS_URL"},
}

var HistoryFileFlag = &cli.StringFlag{
	Name:  "history-file",
	Value: "./registry-history.json",
	Usage: "path of the local history cache file",
}

var StorageURIFlag = &cli.StringFlag{
	Name:  "storage-uri",
	Value: "file:///var/lib/document-registry/files?base_url=",
	Usage: "document storage backend URI (file://, s3://, ipfs://)",
}

var IdentityURLFlag = &cli.StringFlag{
	Name:  "identity-url",
	Value: "",
	Usage: "base URL of the identity service; empty uses built-in static accounts",
}

var IdentityAPIKeyFlag = &cli.StringFlag{
	Name:    "identity-api-key",
	Value:   "",
	Usage:   "API key for the identity service",
	EnvVars: []string{"IDENTITY_API_KEY"},
}

var ConnectFlagFileFlag = &cli.StringFlag{
	Name:  "wallet-flag-file",
	Value: "./registry-wallet.connected",
	Usage: "marker file remembering a previously connected wallet",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "document-registry",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJSONFlag,
	LogDebugFlag,
	LogUIDFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var WalletFlags = []cli.Flag{
	WalletTypeFlag,
	KeystoreDirFlag,
	KeystorePassphraseFlag,
	VaultAddrFlag,
	VaultTokenFlag,
	VaultKeyPathFlag,
	ConnectFlagFileFlag,
}
