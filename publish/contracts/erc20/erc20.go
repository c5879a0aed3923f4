package erc20

import (
	"github.com/lmittmann/w3"
)

// FuncDecimals is the IERC20Standard decimals() getter.
var FuncDecimals = w3.MustNewFunc("decimals()", "uint8")
