package publish

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
	"github.com/lmittmann/w3/w3types"

	"github.com/unisxapp/launch-emp/publish/contracts/erc20"
)

const (
	DefaultURL = "http://localhost:8545"

	receiptPollInterval = 2 * time.Second
)

type (
	// Call is a contract call issued by From. It is used for both the
	// eth_call dry run and the real transaction.
	Call struct {
		From     common.Address
		To       common.Address
		Data     []byte
		Gas      uint64
		GasPrice *big.Int
	}

	// Deployer talks to a single node. With a key it signs transactions
	// locally, otherwise it relies on the node's unlocked accounts.
	Deployer struct {
		rpc     *rpc.Client
		client  *w3.Client
		key     *ecdsa.PrivateKey
		address common.Address
		signer  types.Signer

		pollInterval time.Duration
	}

	sendTxArgs struct {
		From     common.Address `json:"from"`
		To       common.Address `json:"to"`
		Gas      hexutil.Uint64 `json:"gas"`
		GasPrice *hexutil.Big   `json:"gasPrice"`
		Data     hexutil.Bytes  `json:"data"`
	}
)

// NewDeployer dials rpcURL. key may be nil.
func NewDeployer(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey) (*Deployer, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	d := &Deployer{
		rpc:    rpcClient,
		client: w3.NewClient(rpcClient),
		key:    key,

		pollInterval: receiptPollInterval,
	}
	if key != nil {
		d.address = crypto.PubkeyToAddress(key.PublicKey)
	}
	return d, nil
}

func (d *Deployer) Close() error {
	return d.client.Close()
}

// Accounts returns the signing accounts available to the deployer: the
// derived key's address, or whatever the node exposes via eth_accounts.
func (d *Deployer) Accounts(ctx context.Context) ([]common.Address, error) {
	if d.key != nil {
		return []common.Address{d.address}, nil
	}
	var accounts []common.Address
	if err := d.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("get accounts: %w", err)
	}
	return accounts, nil
}

func (d *Deployer) NetworkID(ctx context.Context) (uint64, error) {
	var version string
	if err := d.rpc.CallContext(ctx, &version, "net_version"); err != nil {
		return 0, fmt.Errorf("get network id: %w", err)
	}
	id, err := strconv.ParseUint(version, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse network id %q: %w", version, err)
	}
	return id, nil
}

func (d *Deployer) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	if err := d.client.CallCtx(ctx, eth.CallFunc(token, erc20.FuncDecimals).Returns(&decimals)); err != nil {
		return 0, fmt.Errorf("get decimals of %s: %w", token.Hex(), err)
	}
	return decimals, nil
}

// Simulate runs call against the latest state without sending it and
// returns the raw return data.
func (d *Deployer) Simulate(ctx context.Context, call Call) ([]byte, error) {
	var output []byte
	msg := &w3types.Message{
		From:     call.From,
		To:       &call.To,
		Gas:      call.Gas,
		GasPrice: call.GasPrice,
		Input:    call.Data,
	}
	if err := d.client.CallCtx(ctx, eth.Call(msg, nil, nil).Returns(&output)); err != nil {
		return nil, fmt.Errorf("simulate call: %w", err)
	}
	return output, nil
}

// Send submits call as a single transaction and returns its hash.
func (d *Deployer) Send(ctx context.Context, call Call) (common.Hash, error) {
	if d.key == nil {
		return d.sendFromNode(ctx, call)
	}
	if call.From != d.address {
		return common.Hash{}, fmt.Errorf("send tx: sender %s does not match key address %s", call.From.Hex(), d.address.Hex())
	}

	nonce, err := d.getNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	to := call.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      call.Gas,
		GasPrice: call.GasPrice,
		Data:     call.Data,
	})

	return d.sendTx(ctx, tx)
}

func (d *Deployer) getNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	if err := d.client.CallCtx(ctx, eth.Nonce(d.address, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (d *Deployer) getSigner(ctx context.Context) (types.Signer, error) {
	if d.signer != nil {
		return d.signer, nil
	}
	var chainID uint64
	if err := d.client.CallCtx(ctx, eth.ChainID().Returns(&chainID)); err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	d.signer = types.NewEIP155Signer(new(big.Int).SetUint64(chainID))
	return d.signer, nil
}

func (d *Deployer) sendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signer, err := d.getSigner(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	signedTx, err := types.SignTx(tx, signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var hash common.Hash
	if err := d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&hash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return hash, nil
}

func (d *Deployer) sendFromNode(ctx context.Context, call Call) (common.Hash, error) {
	args := sendTxArgs{
		From:     call.From,
		To:       call.To,
		Gas:      hexutil.Uint64(call.Gas),
		GasPrice: (*hexutil.Big)(call.GasPrice),
		Data:     call.Data,
	}
	var hash common.Hash
	if err := d.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return hash, nil
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := d.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(&receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
