package emp

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/unisxapp/launch-emp/internal/logging"
	"github.com/unisxapp/launch-emp/publish"
	"github.com/unisxapp/launch-emp/publish/contracts/empcreator"
	"github.com/unisxapp/launch-emp/publish/registry"
)

var ErrNoAccounts = errors.New("no accounts: must provide mnemonic or node must have unlocked accounts")

var logger = logging.NewLogger("emp")

type (
	// Chain is the node-side of a deployment. *publish.Deployer implements it.
	Chain interface {
		Accounts(ctx context.Context) ([]common.Address, error)
		NetworkID(ctx context.Context) (uint64, error)
		Decimals(ctx context.Context, token common.Address) (uint8, error)
		Simulate(ctx context.Context, call publish.Call) ([]byte, error)
		Send(ctx context.Context, call publish.Call) (common.Hash, error)
		WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	}

	// Resolver finds deployed contract addresses by name and network id.
	Resolver interface {
		Lookup(name string, networkID uint64) (common.Address, error)
	}

	Result struct {
		TxHash    common.Hash
		From      common.Address
		NetworkID uint64
		Factory   common.Address
		Params    Params
		// EMPAddress is the simulated address with Simulate, replaced by
		// the address from the receipt with Wait. Zero otherwise.
		EMPAddress common.Address
	}
)

// Deploy submits exactly one createExpiringMultiParty transaction. Every
// step runs sequentially and any error aborts the deployment; nothing is
// retried.
func Deploy(ctx context.Context, chain Chain, factories Resolver, cfg Config) (Result, error) {
	accounts, err := chain.Accounts(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(accounts) == 0 {
		return Result{}, ErrNoAccounts
	}
	res := Result{From: accounts[0]}
	logger.Info().Stringer(logging.FieldAccount, res.From).Msg("Using account")

	res.NetworkID, err = chain.NetworkID(ctx)
	if err != nil {
		return Result{}, err
	}

	decimals, err := chain.Decimals(ctx, cfg.CollateralAddress)
	if err != nil {
		return Result{}, err
	}
	logger.Debug().
		Stringer(logging.FieldContract, cfg.CollateralAddress).
		Uint8(logging.FieldDecimals, decimals).
		Msg("Collateral decimals")

	res.Params, err = BuildParams(cfg, decimals)
	if err != nil {
		return Result{}, err
	}

	if cfg.FactoryAddress != nil {
		res.Factory = *cfg.FactoryAddress
	} else {
		res.Factory, err = factories.Lookup(empcreator.Name(), res.NetworkID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: pass --factoryAddress or list it under %s.%s in the config file",
				err, registry.ConfigKey, empcreator.Name())
		}
	}
	logger.Info().
		Uint64(logging.FieldNetworkId, res.NetworkID).
		Stringer(logging.FieldContract, res.Factory).
		Msg("Using factory")

	creatorParams, err := res.Params.Creator()
	if err != nil {
		return Result{}, err
	}
	calldata, err := empcreator.EncodeCreate(creatorParams)
	if err != nil {
		return Result{}, fmt.Errorf("encode createExpiringMultiParty: %w", err)
	}

	call := publish.Call{
		From:     res.From,
		To:       res.Factory,
		Data:     calldata,
		Gas:      empcreator.MaxGasLimit(),
		GasPrice: cfg.GasPrice(),
	}

	if cfg.Simulate {
		logger.Info().Msg("Simulating deployment...")
		output, err := chain.Simulate(ctx, call)
		if err != nil {
			return Result{}, err
		}
		res.EMPAddress, err = empcreator.DecodeCreate(output)
		if err != nil {
			return Result{}, fmt.Errorf("decode simulation result: %w", err)
		}
		logger.Info().Stringer(logging.FieldContract, res.EMPAddress).Msg("Simulation successful")
	}

	logger.Info().Stringer(logging.FieldGasPrice, call.GasPrice).Msg("Sending transaction")
	res.TxHash, err = chain.Send(ctx, call)
	if err != nil {
		return Result{}, err
	}

	if !cfg.Wait {
		return res, nil
	}

	logger.Info().Stringer(logging.FieldTxHash, res.TxHash).Msg("Waiting for receipt")
	receipt, err := chain.WaitForReceipt(ctx, res.TxHash)
	if err != nil {
		return res, fmt.Errorf("wait %s: %w", res.TxHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return res, fmt.Errorf("deployment failed: %s", res.TxHash.Hex())
	}
	res.EMPAddress, err = empcreator.EMPAddressFromReceipt(receipt, res.Factory)
	if err != nil {
		return res, err
	}
	return res, nil
}
