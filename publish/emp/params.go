package emp

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/unisxapp/launch-emp/publish/contracts/empcreator"
)

var (
	// 100% plus one wei. Positions are backed by exactly one unit of
	// collateral before expiry through the financial product library.
	CollateralRequirement = new(big.Int).Add(mustToWei("1"), big.NewInt(1))
	// 10% dispute bond.
	DisputeBondPercentage = mustToWei("0.1")
	// ~100% reward for sponsors who are disputed invalidly.
	SponsorDisputeRewardPercentage = mustToWei("0.99999")
	// 0% reward for correct disputes.
	DisputerDisputeRewardPercentage = big.NewInt(0)
)

var ErrPlaceholderLibrary = errors.New("financial product library address is not set")

// Params is the full set of constructor parameters for one EMP. Fixed-point
// fields are raw values scaled by 1e18, except MinSponsorTokens which is
// scaled by the collateral token's decimals.
type Params struct {
	ExpirationTimestamp             *big.Int
	CollateralAddress               common.Address
	PriceFeedIdentifier             [32]byte
	SyntheticName                   string
	SyntheticSymbol                 string
	CollateralRequirement           *big.Int
	DisputeBondPercentage           *big.Int
	SponsorDisputeRewardPercentage  *big.Int
	DisputerDisputeRewardPercentage *big.Int
	MinSponsorTokens                *big.Int
	LiquidationLiveness             *big.Int
	WithdrawalLiveness              *big.Int
	// FinancialProductLibraryAddress stays textual so that the
	// DefaultLibraryAddress placeholder survives until encoding.
	FinancialProductLibraryAddress string
}

// BuildParams assembles the parameters from a validated config and the
// collateral token's decimals.
func BuildParams(cfg Config, decimals uint8) (Params, error) {
	identifier, err := PadIdentifier(cfg.PriceFeedIdentifier)
	if err != nil {
		return Params{}, fmt.Errorf("price feed identifier: %w", err)
	}
	minSponsorTokens, err := ParseFixed(cfg.MinSponsorTokens, decimals)
	if err != nil {
		return Params{}, fmt.Errorf("min sponsor tokens: %w", err)
	}

	return Params{
		ExpirationTimestamp:             new(big.Int).Set(cfg.ExpirationTimestamp),
		CollateralAddress:               cfg.CollateralAddress,
		PriceFeedIdentifier:             identifier,
		SyntheticName:                   cfg.SyntheticName,
		SyntheticSymbol:                 cfg.SyntheticSymbol,
		CollateralRequirement:           new(big.Int).Set(CollateralRequirement),
		DisputeBondPercentage:           new(big.Int).Set(DisputeBondPercentage),
		SponsorDisputeRewardPercentage:  new(big.Int).Set(SponsorDisputeRewardPercentage),
		DisputerDisputeRewardPercentage: new(big.Int).Set(DisputerDisputeRewardPercentage),
		MinSponsorTokens:                minSponsorTokens,
		LiquidationLiveness:             new(big.Int).SetUint64(cfg.Liveness),
		WithdrawalLiveness:              new(big.Int).SetUint64(cfg.Liveness),
		FinancialProductLibraryAddress:  cfg.LibraryAddress,
	}, nil
}

// Creator converts the parameters into the factory's ABI tuple.
func (p Params) Creator() (empcreator.Params, error) {
	lib := p.FinancialProductLibraryAddress
	if lib == DefaultLibraryAddress {
		return empcreator.Params{}, fmt.Errorf("%w: got placeholder %q, pass --libraryAddress", ErrPlaceholderLibrary, lib)
	}
	if !common.IsHexAddress(lib) {
		return empcreator.Params{}, fmt.Errorf("%w: invalid address %q", ErrPlaceholderLibrary, lib)
	}

	return empcreator.Params{
		ExpirationTimestamp:             p.ExpirationTimestamp,
		CollateralAddress:               p.CollateralAddress,
		PriceFeedIdentifier:             p.PriceFeedIdentifier,
		SyntheticName:                   p.SyntheticName,
		SyntheticSymbol:                 p.SyntheticSymbol,
		CollateralRequirement:           empcreator.Unsigned{RawValue: p.CollateralRequirement},
		DisputeBondPercentage:           empcreator.Unsigned{RawValue: p.DisputeBondPercentage},
		SponsorDisputeRewardPercentage:  empcreator.Unsigned{RawValue: p.SponsorDisputeRewardPercentage},
		DisputerDisputeRewardPercentage: empcreator.Unsigned{RawValue: p.DisputerDisputeRewardPercentage},
		MinSponsorTokens:                empcreator.Unsigned{RawValue: p.MinSponsorTokens},
		WithdrawalLiveness:              p.WithdrawalLiveness,
		LiquidationLiveness:             p.LiquidationLiveness,
		FinancialProductLibraryAddress:  common.HexToAddress(lib),
	}, nil
}
