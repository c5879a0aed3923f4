package logging

const (
	FieldComponent = "component"

	FieldUrl       = "url"
	FieldNetworkId = "networkId"
	FieldAccount   = "account"
	FieldContract  = "contract"
	FieldTxHash    = "txHash"
	FieldGasPrice  = "gasPrice"
	FieldDecimals  = "decimals"
)
