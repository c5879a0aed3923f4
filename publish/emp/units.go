package emp

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// fixed-point scale used by FixedPoint.Unsigned
	fixedPointDecimals = 18
	gweiDecimals       = 9
	identifierSize     = 32
)

// ParseFixed converts a human-readable decimal into its integer
// representation with the given number of decimals, e.g. "1.5" with 6
// decimals becomes 1500000.
func ParseFixed(value string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid decimal %q: negative value", value)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("invalid decimal %q: more than %d fractional digits", value, decimals)
	}
	return scaled.BigInt(), nil
}

// ToWei scales value by 1e18.
func ToWei(value string) (*big.Int, error) {
	return ParseFixed(value, fixedPointDecimals)
}

func mustToWei(value string) *big.Int {
	v, err := ToWei(value)
	if err != nil {
		panic(err)
	}
	return v
}

// GweiToWei converts a gas price in GWEI to wei.
func GweiToWei(gwei decimal.Decimal) (*big.Int, error) {
	return ParseFixed(gwei.String(), gweiDecimals)
}

var errIdentifierTooLong = errors.New("identifier longer than 32 bytes")

// PadIdentifier returns the UTF-8 bytes of id right-padded with zeros to 32
// bytes.
func PadIdentifier(id string) ([identifierSize]byte, error) {
	var out [identifierSize]byte
	if len(id) > identifierSize {
		return out, fmt.Errorf("%q: %w", id, errIdentifierTooLong)
	}
	copy(out[:], id)
	return out, nil
}
