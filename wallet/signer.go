package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/docledger/document-registry-backend/interfaces"
)

// markSignerRejections wraps the transactor's signer so a refusal to sign,
// such as a locked keystore account, surfaces as ErrSubmissionRejected
// instead of being folded into a generic chain failure downstream.
func markSignerRejections(auth *bind.TransactOpts) *bind.TransactOpts {
	inner := auth.Signer
	auth.Signer = func(address common.Address, tx *types.Transaction) (*types.Transaction, error) {
		signed, err := inner(address, tx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrSubmissionRejected, err)
		}
		return signed, nil
	}
	return auth
}
