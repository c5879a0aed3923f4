package empcreator

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/lmittmann/w3"
)

const (
	name     = "ExpiringMultiPartyCreator"
	GasLimit = 9_000_000
)

var (
	funcCreate = w3.MustNewFunc(
		"createExpiringMultiParty(("+
			"uint256 expirationTimestamp,"+
			"address collateralAddress,"+
			"bytes32 priceFeedIdentifier,"+
			"string syntheticName,"+
			"string syntheticSymbol,"+
			"(uint256 rawValue) collateralRequirement,"+
			"(uint256 rawValue) disputeBondPercentage,"+
			"(uint256 rawValue) sponsorDisputeRewardPercentage,"+
			"(uint256 rawValue) disputerDisputeRewardPercentage,"+
			"(uint256 rawValue) minSponsorTokens,"+
			"uint256 withdrawalLiveness,"+
			"uint256 liquidationLiveness,"+
			"address financialProductLibraryAddress"+
			") params)",
		"address",
	)
	eventCreated = w3.MustNewEvent(
		"CreatedExpiringMultiParty(address indexed,address indexed)",
	)
)

type (
	// Unsigned mirrors FixedPoint.Unsigned: a value scaled by 1e18.
	Unsigned struct {
		RawValue *big.Int
	}

	// Params mirrors ExpiringMultiPartyCreator.Params. Field names map to
	// the tuple component names above.
	Params struct {
		ExpirationTimestamp             *big.Int
		CollateralAddress               common.Address
		PriceFeedIdentifier             [32]byte
		SyntheticName                   string
		SyntheticSymbol                 string
		CollateralRequirement           Unsigned
		DisputeBondPercentage           Unsigned
		SponsorDisputeRewardPercentage  Unsigned
		DisputerDisputeRewardPercentage Unsigned
		MinSponsorTokens                Unsigned
		WithdrawalLiveness              *big.Int
		LiquidationLiveness             *big.Int
		FinancialProductLibraryAddress  common.Address
	}
)

func Name() string        { return name }
func MaxGasLimit() uint64 { return GasLimit }
func Selector() [4]byte   { return funcCreate.Selector }

func EncodeCreate(params Params) ([]byte, error) {
	return funcCreate.EncodeArgs(params)
}

// DecodeCreate returns the EMP address from the output of a simulated
// createExpiringMultiParty call.
func DecodeCreate(output []byte) (common.Address, error) {
	var addr common.Address
	if err := funcCreate.DecodeReturns(output, &addr); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// EMPAddressFromReceipt finds the CreatedExpiringMultiParty event emitted by
// factory and returns the new contract's address.
func EMPAddressFromReceipt(receipt *types.Receipt, factory common.Address) (common.Address, error) {
	for _, log := range receipt.Logs {
		if log.Address != factory {
			continue
		}
		var (
			emp      common.Address
			deployer common.Address
		)
		if err := eventCreated.DecodeArgs(log, &emp, &deployer); err == nil {
			return emp, nil
		}
	}
	return common.Address{}, errors.New("CreatedExpiringMultiParty event not found in receipt logs")
}
