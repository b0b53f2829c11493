package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/paysession/types"
)

func TestParsePaymentIntent(t *testing.T) {
	data := []byte(`{
		"reference": "r1",
		"intentId": "pi_1",
		"transaction": "AQID",
		"amount": "9.99",
		"tokenAmount": 0.0542,
		"tokenSymbol": "SOL",
		"expiresAt": 1700000060
	}`)

	intent, err := ParsePaymentIntent(data)
	require.NoError(t, err)
	assert.Equal(t, "r1", intent.Reference)
	assert.Equal(t, "AQID", intent.Payload)
	assert.True(t, intent.AmountFiat.Equal(decimal.RequireFromString("9.99")))
	assert.True(t, intent.TokenAmount.Equal(decimal.RequireFromString("0.0542")))
	assert.Equal(t, time.Unix(1_700_000_060, 0), intent.ExpiresAt)
}

func TestParsePaymentIntent_MissingFields(t *testing.T) {
	_, err := ParsePaymentIntent([]byte(`{"intentId":"pi_1","payload":"x","expiresAt":1700000060}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Reference")

	_, err = ParsePaymentIntent([]byte(`{"reference":"r1","intentId":"pi_1","payload":"x"}`))
	assert.Error(t, err)
}

func TestParseExpiry(t *testing.T) {
	ts, err := ParseExpiry([]byte(`1700000060000`))
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1_700_000_060_000), ts)

	ts, err = ParseExpiry([]byte(`"2026-10-14T10:00:00Z"`))
	require.NoError(t, err)
	assert.Equal(t, 2026, ts.Year())

	ts, err = ParseExpiry([]byte(`"1700000060"`))
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1_700_000_060, 0), ts)

	_, err = ParseExpiry([]byte(`"soon"`))
	assert.Error(t, err)
}

func TestValidateStruct_CheckoutRequest(t *testing.T) {
	ok := &types.CheckoutRequest{Kind: types.CheckoutNewCard, PriceID: "price_1", CardToken: "tok_1"}
	assert.NoError(t, ValidateStruct(ok))

	missingToken := &types.CheckoutRequest{Kind: types.CheckoutNewCard, PriceID: "price_1"}
	assert.Error(t, ValidateStruct(missingToken))

	badKind := &types.CheckoutRequest{Kind: "crypto", PriceID: "price_1"}
	assert.Error(t, ValidateStruct(badKind))
}

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, uint64(54_200_000), ToBaseUnits(decimal.RequireFromString("0.0542"), 9))
	assert.Equal(t, uint64(2), ToBaseUnits(decimal.RequireFromString("0.0000000011"), 9))
	assert.Equal(t, uint64(0), ToBaseUnits(decimal.RequireFromString("-1"), 9))
}

func TestValidateAmount(t *testing.T) {
	_, err := ValidateAmount("")
	assert.Error(t, err)
	_, err = ValidateAmount("-2")
	assert.Error(t, err)
	d, err := ValidateAmount("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1.5", d.String())
}
