package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the display currency of a settlement.
type Currency string

const (
	CurrencyUSDT Currency = "USDT"
	CurrencyUSDC Currency = "USDC"
	CurrencyETH  Currency = "ETH"
	CurrencyBTC  Currency = "BTC"
)

// networkFeeRate is the quoted network fee: 0.1% of the amount.
var networkFeeRate = decimal.RequireFromString("0.001")

// totalPlaces matches the settlement summary display, three fixed decimals.
const totalPlaces = 3

// Request captures one user-initiated payment. Derived values are computed on
// every call so they can never go stale when the amount is edited.
type Request struct {
	RecipientName    string
	RecipientAddress string
	Amount           string
	Currency         Currency
	Fee              string
	Memo             string
}

func NewRequest() *Request {
	return &Request{Currency: CurrencyUSDT}
}

// FeeOrDefault returns the explicit fee, defaulting to "0" when unset.
func (r *Request) FeeOrDefault() string {
	if strings.TrimSpace(r.Fee) == "" {
		return "0"
	}
	return r.Fee
}

// NetworkFee quotes the 0.1% network fee on the current amount, fixed at
// three decimal places. An unparsable amount quotes as zero.
func (r *Request) NetworkFee() string {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return decimal.Zero.StringFixed(totalPlaces)
	}
	return amount.Mul(networkFeeRate).StringFixed(totalPlaces)
}

// TotalAmount is the amount plus the fee the sender will pay: the explicit
// fee when one is set, otherwise the quoted network fee.
func (r *Request) TotalAmount() string {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return decimal.Zero.StringFixed(totalPlaces)
	}

	fee, err := decimal.NewFromString(strings.TrimSpace(r.FeeOrDefault()))
	if err != nil || !fee.IsPositive() {
		fee = amount.Mul(networkFeeRate)
	}
	return amount.Add(fee).StringFixed(totalPlaces)
}

// CanAdvanceFromDetails is the gate out of the details step: a recipient
// address is present and the amount is a positive decimal.
func (r *Request) CanAdvanceFromDetails() bool {
	if strings.TrimSpace(r.RecipientAddress) == "" {
		return false
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return false
	}
	return amount.IsPositive()
}
