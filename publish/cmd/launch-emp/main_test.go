package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisxapp/launch-emp/publish"
	"github.com/unisxapp/launch-emp/publish/emp"
	"github.com/unisxapp/launch-emp/publish/registry"
)

var (
	account    = common.HexToAddress("0x4444444444444444444444444444444444444444")
	factory    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	empAddress = common.HexToAddress("0x5555555555555555555555555555555555555555")
	txHash     = common.HexToHash("0x01")
)

type fakeChain struct {
	networkID uint64
	sent      []publish.Call
	closed    bool
}

func (c *fakeChain) Accounts(context.Context) ([]common.Address, error) {
	return []common.Address{account}, nil
}

func (c *fakeChain) NetworkID(context.Context) (uint64, error) { return c.networkID, nil }

func (c *fakeChain) Decimals(context.Context, common.Address) (uint8, error) { return 18, nil }

func (c *fakeChain) Simulate(context.Context, publish.Call) ([]byte, error) {
	return common.LeftPadBytes(empAddress.Bytes(), 32), nil
}

func (c *fakeChain) Send(_ context.Context, call publish.Call) (common.Hash, error) {
	c.sent = append(c.sent, call)
	return txHash, nil
}

func (c *fakeChain) WaitForReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{{
			Address: factory,
			Topics: []common.Hash{
				crypto.Keccak256Hash([]byte("CreatedExpiringMultiParty(address,address)")),
				common.BytesToHash(empAddress.Bytes()),
				common.BytesToHash(account.Bytes()),
			},
		}},
	}, nil
}

func (c *fakeChain) Close() error {
	c.closed = true
	return nil
}

type harness struct {
	chain  *fakeChain
	dialed []emp.Config
	out    bytes.Buffer
}

func newHarness() *harness {
	return &harness{chain: &fakeChain{networkID: 1337}}
}

func (h *harness) dial(_ context.Context, cfg emp.Config) (chain, error) {
	h.dialed = append(h.dialed, cfg)
	return h.chain, nil
}

func (h *harness) execute(args ...string) error {
	rc := newRootCommand(h.dial, &h.out)
	// nil args make cobra fall back to os.Args.
	rc.baseCmd.SetArgs(append([]string{}, args...))
	return rc.Execute(context.Background())
}

func requiredArgs() []string {
	return []string{
		"--gasprice", "5",
		"--priceFeedIdentifier", "UNISX_USD",
		"--collateralAddress", "0x1111111111111111111111111111111111111111",
		"--expirationTimestamp", "1735689600",
		"--syntheticName", "UNISX Synthetic Dec 2024",
		"--syntheticSymbol", "uUSD-DEC24",
		"--minSponsorTokens", "100",
		"--libraryAddress", "0x3333333333333333333333333333333333333333",
	}
}

func TestRun_MissingFlags(t *testing.T) {
	t.Parallel()

	h := newHarness()
	err := h.execute()

	var verr *emp.ValidationError
	require.ErrorAs(t, err, &verr)
	flags := make([]string, 0, len(verr.Violations))
	for _, v := range verr.Violations {
		flags = append(flags, v.Flag)
	}
	assert.ElementsMatch(t, []string{
		"gasprice",
		"priceFeedIdentifier",
		"collateralAddress",
		"expirationTimestamp",
		"syntheticName",
		"syntheticSymbol",
		"minSponsorTokens",
	}, flags)
	assert.Empty(t, h.dialed)
	assert.Empty(t, h.out.String())
}

func TestRun_GasPriceOutOfRange(t *testing.T) {
	t.Parallel()

	h := newHarness()
	args := append(requiredArgs(), "--gasprice", "1001")
	err := h.execute(args...)

	var verr *emp.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "--gasprice must be between 1 and 1000 (GWEI)", verr.Violations[0].String())
	assert.Empty(t, h.dialed)
}

func TestRun_FactoryFlag(t *testing.T) {
	t.Parallel()

	h := newHarness()
	args := append(requiredArgs(), "--factoryAddress", factory.Hex())
	require.NoError(t, h.execute(args...))

	assert.Equal(t, "Deployed in transaction: "+txHash.Hex()+"\n", h.out.String())
	require.Len(t, h.dialed, 1)
	assert.Equal(t, publish.DefaultURL, h.dialed[0].URL)
	require.Len(t, h.chain.sent, 1)
	assert.Equal(t, factory, h.chain.sent[0].To)
	assert.Equal(t, account, h.chain.sent[0].From)
	assert.Equal(t, uint64(9_000_000), h.chain.sent[0].Gas)
	assert.Equal(t, "5000000000", h.chain.sent[0].GasPrice.String())
	assert.True(t, h.chain.closed)
}

func TestRun_ConfigRegistry(t *testing.T) {
	t.Parallel()

	cfgFile := filepath.Join(t.TempDir(), "launch-emp.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
url: http://node.example:8545
addresses:
  ExpiringMultiPartyCreator:
    "1337": "`+factory.Hex()+`"
`), 0o600))

	h := newHarness()
	args := append(requiredArgs(), "--config", cfgFile, "--wait")
	require.NoError(t, h.execute(args...))

	assert.Equal(t,
		"Deployed in transaction: "+txHash.Hex()+"\n"+
			"Expiring Multi-Party address: "+empAddress.Hex()+"\n",
		h.out.String())
	require.Len(t, h.dialed, 1)
	assert.Equal(t, "http://node.example:8545", h.dialed[0].URL)
	require.Len(t, h.chain.sent, 1)
	assert.Equal(t, factory, h.chain.sent[0].To)
}

func TestRun_UnknownNetwork(t *testing.T) {
	t.Parallel()

	h := newHarness()
	err := h.execute(requiredArgs()...)

	require.ErrorIs(t, err, registry.ErrNotFound)
	assert.Empty(t, h.chain.sent)
	assert.Empty(t, h.out.String())
}

func TestRun_PlaceholderLibrary(t *testing.T) {
	t.Parallel()

	h := newHarness()
	args := append(requiredArgs(), "--libraryAddress", emp.DefaultLibraryAddress, "--factoryAddress", factory.Hex())
	err := h.execute(args...)

	require.ErrorIs(t, err, emp.ErrPlaceholderLibrary)
	assert.Empty(t, h.chain.sent)
	assert.Empty(t, h.out.String())
}

func TestRun_DialError(t *testing.T) {
	t.Parallel()

	dialErr := errors.New("connection refused")
	var out bytes.Buffer
	rc := newRootCommand(func(context.Context, emp.Config) (chain, error) {
		return nil, dialErr
	}, &out)
	rc.baseCmd.SetArgs(append(requiredArgs(), "--factoryAddress", factory.Hex()))

	require.ErrorIs(t, rc.Execute(context.Background()), dialErr)
	assert.Empty(t, out.String())
}

func TestRun_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	h := newHarness()
	err := h.execute(append(requiredArgs(), "--log-level", "loud")...)

	require.ErrorContains(t, err, "log level")
	assert.Empty(t, h.dialed)
}

func TestRun_ExitCodes(t *testing.T) {
	t.Parallel()

	t.Run("invalid options", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), nil, h.dial, &stdout, &stderr)

		assert.Equal(t, 1, code)
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Error: invalid options: ")
		assert.Contains(t, stderr.String(), "--gasprice required (in GWEI)")
		assert.Empty(t, h.dialed)
	})

	t.Run("deployment error", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), requiredArgs(), h.dial, &stdout, &stderr)

		assert.Equal(t, 1, code)
		assert.Empty(t, stdout.String())
		assert.Contains(t, stderr.String(), "Error: ExpiringMultiPartyCreator on network 1337: address not found")
		assert.Contains(t, stderr.String(), "pass --factoryAddress or list it under addresses.ExpiringMultiPartyCreator")
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		h := newHarness()
		var stdout, stderr bytes.Buffer
		args := append(requiredArgs(), "--factoryAddress", factory.Hex())
		code := run(context.Background(), args, h.dial, &stdout, &stderr)

		assert.Equal(t, 0, code)
		assert.Equal(t, "Deployed in transaction: "+txHash.Hex()+"\n", stdout.String())
		assert.Empty(t, stderr.String())
	})
}
