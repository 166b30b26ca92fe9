package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/docledger/document-registry-backend/cmd/flags"
	"github.com/docledger/document-registry-backend/history"
	"github.com/docledger/document-registry-backend/interfaces"
	"github.com/docledger/document-registry-backend/registry"
	"github.com/docledger/document-registry-backend/wallet"
)

var flagDocID = &cli.StringFlag{
	Name:     "doc-id",
	Required: true,
	Usage:    "caller-chosen document identifier",
}
var flagFile = &cli.StringFlag{
	Name:  "file",
	Usage: "path of the document to hash",
}
var flagHash = &cli.StringFlag{
	Name:  "hash",
	Usage: "precomputed content hash, 0x-prefixed hex",
}
var flagURI = &cli.StringFlag{
	Name:  "uri",
	Usage: "optional public URI stored with the registration",
}

func main() {
	app := &cli.App{
		Name:  "registry-cli",
		Usage: "Register and verify document hashes against the on-chain registry",
		Flags: append([]cli.Flag{
			flags.RPCAddrFlag,
			flags.ContractAddrFlag,
			flags.ChainIDFlag,
			flags.HistoryFileFlag,
			flags.LogJSONFlag,
			flags.LogDebugFlag,
			flags.LogServiceFlag,
		}, flags.WalletFlags...),
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Register a document hash on-chain",
				Flags: []cli.Flag{flagDocID, flagFile, flagHash, flagURI},
				Action: func(cCtx *cli.Context) error {
					env, err := newEnv(cCtx)
					if err != nil {
						return err
					}
					defer env.close()

					digest, err := resolveDigest(cCtx)
					if err != nil {
						return err
					}

					if _, err := env.session.Connect(cCtx.Context); err != nil {
						return fmt.Errorf("could not connect wallet: %w", err)
					}
					auth, err := env.session.TransactOpts()
					if err != nil {
						return err
					}
					env.client.SetTransactOpts(auth)

					receipt, err := env.client.Register(cCtx.Context, cCtx.String(flagDocID.Name), digest, cCtx.String(flagURI.Name))
					if err != nil {
						return err
					}

					env.remember(cCtx.Context, cCtx.String(flagDocID.Name), digest, receipt.TxHash)
					fmt.Printf("registered %s\ntx: %s\n", digest, receipt.TxHash)
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Check a document hash against the on-chain record",
				Flags: []cli.Flag{flagDocID, flagFile, flagHash},
				Action: func(cCtx *cli.Context) error {
					env, err := newEnv(cCtx)
					if err != nil {
						return err
					}
					defer env.close()

					digest, err := resolveDigest(cCtx)
					if err != nil {
						return err
					}

					verified, err := env.client.Verify(cCtx.Context, cCtx.String(flagDocID.Name), digest)
					if err != nil {
						return err
					}
					if verified {
						fmt.Println("VERIFIED: hash matches the on-chain record")
					} else {
						fmt.Println("NOT VERIFIED: no matching on-chain record")
					}
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "Show recent register and verify activity",
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					store := history.NewFileStore(cCtx.String(flags.HistoryFileFlag.Name), logger)
					entries, err := store.List(cCtx.Context)
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						fmt.Println("no recent activity")
						return nil
					}
					for _, e := range entries {
						kind := "verified"
						when := e.VerifiedAt
						if e.RegisteredAt != nil {
							kind = "registered"
							when = e.RegisteredAt
						}
						stamp := ""
						if when != nil {
							stamp = when.Format("2006-01-02 15:04:05")
						}
						fmt.Printf("%-10s %s  %s  %s\n", kind, stamp, e.DocID, e.DocHash)
					}
					return nil
				},
			},
			{
				Name:  "clear-history",
				Usage: "Drop the local activity cache",
				Action: func(cCtx *cli.Context) error {
					logger := flags.SetupLogger(cCtx)
					return history.NewFileStore(cCtx.String(flags.HistoryFileFlag.Name), logger).Clear(cCtx.Context)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type env struct {
	client  *registry.Client
	session *wallet.Session
	hist    *history.FileStore
	cleanup []func()
}

func newEnv(cCtx *cli.Context) (*env, error) {
	logger := flags.SetupLogger(cCtx)

	contractHex := cCtx.String(flags.ContractAddrFlag.Name)
	if !ethcommon.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("invalid contract address: %s", contractHex)
	}

	ethClient, err := ethclient.Dial(cCtx.String(flags.RPCAddrFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("could not dial RPC: %w", err)
	}

	client, err := registry.NewClient(ethClient, ethClient, ethcommon.HexToAddress(contractHex))
	if err != nil {
		return nil, err
	}

	chainID := big.NewInt(cCtx.Int64(flags.ChainIDFlag.Name))
	provider := wallet.NewKeystoreProvider(
		cCtx.String(flags.KeystoreDirFlag.Name),
		cCtx.String(flags.KeystorePassphraseFlag.Name),
		chainID, logger)

	flagStore := wallet.NewFileFlagStore(cCtx.String(flags.ConnectFlagFileFlag.Name))
	session := wallet.NewSession(provider, flagStore, logger)

	return &env{
		client:  client,
		session: session,
		hist:    history.NewFileStore(cCtx.String(flags.HistoryFileFlag.Name), logger),
		cleanup: []func(){session.Close, provider.Close},
	}, nil
}

func (e *env) close() {
	for _, fn := range e.cleanup {
		fn()
	}
}

func (e *env) remember(ctx context.Context, docID string, digest interfaces.Digest, txHash string) {
	now := time.Now().UTC()
	entry := interfaces.HistoryEntry{DocID: docID, DocHash: digest, TxHash: txHash, RegisteredAt: &now}
	if err := e.hist.Remember(ctx, entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record history: %v\n", err)
	}
}

func resolveDigest(cCtx *cli.Context) (interfaces.Digest, error) {
	if hash := cCtx.String(flagHash.Name); hash != "" {
		return interfaces.NewDigest(hash)
	}
	path := cCtx.String(flagFile.Name)
	if path == "" {
		return "", fmt.Errorf("either --file or --hash is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()
	return interfaces.HashReader(f)
}
