package emp

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/unisxapp/launch-emp/publish"
)

const (
	DefaultLibraryAddress = "0xreplace"
	DefaultLiveness       = 315_360_000 // ten years in seconds
	DefaultTimeout        = 10 * time.Minute

	MinGasPriceGwei = 1
	MaxGasPriceGwei = 1000
)

// Options is the raw command-line input. Every field is kept as text so that
// malformed values are reported by Validate instead of the flag parser.
type Options struct {
	URL                 string `flag:"url" validate:"omitempty,url"`
	Mnemonic            string `flag:"mnemonic"`
	AddressIndex        uint32 `flag:"addressIndex"`
	GasPrice            string `flag:"gasprice" validate:"required,numeric,gwei"`
	PriceFeedIdentifier string `flag:"priceFeedIdentifier" validate:"required,identifier"`
	CollateralAddress   string `flag:"collateralAddress" validate:"required,address"`
	ExpirationTimestamp string `flag:"expirationTimestamp" validate:"required,number"`
	SyntheticName       string `flag:"syntheticName" validate:"required"`
	SyntheticSymbol     string `flag:"syntheticSymbol" validate:"required"`
	MinSponsorTokens    string `flag:"minSponsorTokens" validate:"required,amount"`
	LibraryAddress      string `flag:"libraryAddress"`
	Liveness            string `flag:"liveness" validate:"omitempty,number,uint64"`
	FactoryAddress      string `flag:"factoryAddress" validate:"omitempty,address"`
	Simulate            bool   `flag:"simulate"`
	Wait                bool   `flag:"wait"`
	Timeout             time.Duration
}

// Config is the validated form of Options.
type Config struct {
	URL                 string
	Mnemonic            string
	AddressIndex        uint32
	GasPriceGwei        decimal.Decimal
	PriceFeedIdentifier string
	CollateralAddress   common.Address
	ExpirationTimestamp *big.Int
	SyntheticName       string
	SyntheticSymbol     string
	MinSponsorTokens    string
	LibraryAddress      string
	Liveness            uint64
	// FactoryAddress overrides the registry when set.
	FactoryAddress *common.Address
	Simulate       bool
	Wait           bool
	Timeout        time.Duration
}

// GasPrice returns the transaction gas price in wei.
func (c Config) GasPrice() *big.Int {
	wei, err := GweiToWei(c.GasPriceGwei)
	if err != nil {
		// Validate only accepts prices that convert exactly.
		panic(err)
	}
	return wei
}

type Violation struct {
	Flag    string
	Message string
}

func (v Violation) String() string {
	return "--" + v.Flag + " " + v.Message
}

// ValidationError lists every invalid option, not only the first one.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "invalid options: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("flag"); name != "" {
			return name
		}
		return fld.Name
	})
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("gwei", func(fl validator.FieldLevel) bool {
		return validGasPrice(fl.Field().String()) == nil
	}))
	must(v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		_, err := PadIdentifier(fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	}))
	must(v.RegisterValidation("uint64", func(fl validator.FieldLevel) bool {
		_, err := strconv.ParseUint(fl.Field().String(), 10, 64)
		return err == nil
	}))
	must(v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	}))
	return v
}

func validGasPrice(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	if d.LessThan(decimal.NewFromInt(MinGasPriceGwei)) || d.GreaterThan(decimal.NewFromInt(MaxGasPriceGwei)) {
		return errors.New("out of range")
	}
	_, err = GweiToWei(d)
	return err
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "gasprice" {
			return "required (in GWEI)"
		}
		return "required"
	case "numeric":
		return "must be a number"
	case "number":
		return "must be a non-negative integer"
	case "gwei":
		return fmt.Sprintf("must be between %d and %d (GWEI)", MinGasPriceGwei, MaxGasPriceGwei)
	case "uint64":
		return "must fit in 64 bits"
	case "identifier":
		return "must be at most 32 bytes"
	case "address":
		return "must be a hex address"
	case "amount":
		return "must be a non-negative decimal"
	case "url":
		return "must be a URL"
	default:
		return "is invalid"
	}
}

// Validate applies defaults and checks every option. It returns a
// *ValidationError describing all violations, and never touches the network.
func (o Options) Validate() (Config, error) {
	if o.URL == "" {
		o.URL = publish.DefaultURL
	}
	if o.LibraryAddress == "" {
		o.LibraryAddress = DefaultLibraryAddress
	}
	if o.Liveness == "" {
		o.Liveness = strconv.FormatUint(DefaultLiveness, 10)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}

	var verr ValidationError
	if err := validate.Struct(o); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Config{}, err
		}
		for _, fe := range fieldErrs {
			verr.Violations = append(verr.Violations, Violation{Flag: fe.Field(), Message: violationMessage(fe)})
		}
	}

	cfg := Config{
		URL:                 o.URL,
		Mnemonic:            strings.TrimSpace(o.Mnemonic),
		AddressIndex:        o.AddressIndex,
		PriceFeedIdentifier: o.PriceFeedIdentifier,
		SyntheticName:       o.SyntheticName,
		SyntheticSymbol:     o.SyntheticSymbol,
		MinSponsorTokens:    o.MinSponsorTokens,
		LibraryAddress:      o.LibraryAddress,
		Simulate:            o.Simulate,
		Wait:                o.Wait,
		Timeout:             o.Timeout,
	}

	if cfg.Mnemonic != "" {
		if _, err := publish.KeyFromMnemonic(cfg.Mnemonic, cfg.AddressIndex); err != nil {
			verr.Violations = append(verr.Violations, Violation{Flag: "mnemonic", Message: err.Error()})
		}
	}

	if len(verr.Violations) > 0 {
		return Config{}, &verr
	}

	// The fields below passed validation, so parsing cannot fail.
	cfg.GasPriceGwei = decimal.RequireFromString(o.GasPrice)
	cfg.CollateralAddress = common.HexToAddress(o.CollateralAddress)
	cfg.ExpirationTimestamp, _ = new(big.Int).SetString(o.ExpirationTimestamp, 10)
	cfg.Liveness, _ = strconv.ParseUint(o.Liveness, 10, 64)
	if o.FactoryAddress != "" {
		addr := common.HexToAddress(o.FactoryAddress)
		cfg.FactoryAddress = &addr
	}

	return cfg, nil
}
