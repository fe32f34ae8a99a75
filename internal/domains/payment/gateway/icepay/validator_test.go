package icepay

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icepay-gateway/internal/domains/payment/model"
)

const (
	testMerchant = "10000"
	testSecret   = "AbCdEfGhIjKlMnOpQrStUvWxYz"
)

func signedResult(status string) url.Values {
	params := url.Values{}
	params.Set(ParamStatus, status)
	params.Set(ParamStatusCode, "Payment completed")
	params.Set(ParamMerchant, testMerchant)
	params.Set(ParamOrderID, "pay-1")
	params.Set(ParamPaymentID, "4455")
	params.Set(ParamReference, "order-1")
	params.Set(ParamTransactionID, "TX-1")
	params.Set(ParamChecksum, GenerateChecksum(params, model.ChannelResult, testSecret))
	return params
}

func signedPostback(status, amount string) url.Values {
	params := url.Values{}
	params.Set(ParamStatus, status)
	params.Set(ParamStatusCode, "Payment completed")
	params.Set(ParamMerchant, testMerchant)
	params.Set(ParamOrderID, "pay-1")
	params.Set(ParamPaymentID, "4455")
	params.Set(ParamReference, "order-1")
	params.Set(ParamTransactionID, "TX-1")
	params.Set(ParamAmount, amount)
	params.Set(ParamCurrency, "EUR")
	params.Set(ParamDuration, "42")
	params.Set(ParamConsumerIP, "10.0.0.1")
	params.Set(ParamChecksum, GenerateChecksum(params, model.ChannelPostback, testSecret))
	return params
}

func TestValidator_ResultOK(t *testing.T) {
	v := NewValidator(testMerchant, testSecret)

	res, err := v.Validate(signedResult("SUCCESS"), model.ChannelResult)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, res.Status)
	assert.Equal(t, "pay-1", res.PaymentID)
	assert.Equal(t, "4455", res.ProcessorPaymentID)
	assert.Equal(t, "order-1", res.Reference)
	assert.Equal(t, "TX-1", res.TransactionID)
	assert.False(t, res.HasAmount)
	assert.Equal(t, model.ChannelResult, res.Channel)
}

func TestValidator_PostbackOK(t *testing.T) {
	v := NewValidator(testMerchant, testSecret)

	res, err := v.Validate(signedPostback("OPEN", "1250"), model.ChannelPostback)
	require.NoError(t, err)

	assert.Equal(t, model.StatusOpen, res.Status)
	assert.True(t, res.HasAmount)
	assert.Equal(t, int64(1250), res.Amount)
	assert.Equal(t, "EUR", res.Currency)
	assert.Equal(t, "10.0.0.1", res.ConsumerIP)
}

func TestValidator_Failures(t *testing.T) {
	v := NewValidator(testMerchant, testSecret)

	tamperedAmount := signedPostback("SUCCESS", "1250")
	tamperedAmount.Set(ParamAmount, "1")

	tamperedStatus := signedResult("ERROR")
	tamperedStatus.Set(ParamStatus, "SUCCESS")

	otherMerchant := signedResult("SUCCESS")
	otherMerchant.Set(ParamMerchant, "99999")

	// correctly signed, so only the merchant check can reject it
	prefixMerchant := signedResult("SUCCESS")
	prefixMerchant.Set(ParamMerchant, testMerchant[:3])
	prefixMerchant.Set(ParamChecksum, GenerateChecksum(prefixMerchant, model.ChannelResult, testSecret))

	missing := signedResult("SUCCESS")
	missing.Del(ParamReference)

	noChecksum := signedResult("SUCCESS")
	noChecksum.Del(ParamChecksum)

	badAmount := signedPostback("SUCCESS", "12.50")

	unknownStatus := signedResult("PENDING")

	resultAsPostback := signedResult("SUCCESS")

	tests := []struct {
		name    string
		params  url.Values
		channel model.Channel
	}{
		{"tampered amount", tamperedAmount, model.ChannelPostback},
		{"tampered status", tamperedStatus, model.ChannelResult},
		{"unknown merchant", otherMerchant, model.ChannelResult},
		{"merchant id prefix", prefixMerchant, model.ChannelResult},
		{"missing reference", missing, model.ChannelResult},
		{"missing checksum", noChecksum, model.ChannelResult},
		{"non numeric amount", badAmount, model.ChannelPostback},
		{"unknown status", unknownStatus, model.ChannelResult},
		{"result payload on postback channel", resultAsPostback, model.ChannelPostback},
		{"empty payload", url.Values{}, model.ChannelResult},
		{"unknown channel", signedResult("SUCCESS"), model.Channel("sms")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(tt.params, tt.channel)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrValidation))

			pErr, ok := model.IsPaymentError(err)
			require.True(t, ok)
			assert.Equal(t, model.ErrCodeValidation, pErr.Code)
		})
	}
}

func TestVerifyChecksum_CaseInsensitiveHex(t *testing.T) {
	params := signedResult("OPEN")
	params.Set(ParamChecksum, "  ")
	assert.False(t, VerifyChecksum(params, model.ChannelResult, testSecret))

	params = signedResult("OPEN")
	upper := params.Get(ParamChecksum)
	params.Set(ParamChecksum, strings.ToUpper(upper))
	assert.True(t, VerifyChecksum(params, model.ChannelResult, testSecret))
}

// Digests below are SHA1 over the pipe-joined layout
// secret|Merchant|Status|StatusCode|OrderID|PaymentID|Reference|TransactionID
// (postbacks append Amount|Currency|Duration|ConsumerIPAddress).
func TestGenerateChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		params  url.Values
		channel model.Channel
		want    string
	}{
		{
			name:    "result",
			params:  unsigned(signedResult("SUCCESS")),
			channel: model.ChannelResult,
			want:    "a80a3441fad54d50a58cf55873c8284ce675d2ee",
		},
		{
			name:    "postback",
			params:  unsigned(signedPostback("OPEN", "1250")),
			channel: model.ChannelPostback,
			want:    "88e41f5d659903d8f6612363f4c74dab54b3582b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateChecksum(tt.params, tt.channel, testSecret))
		})
	}
}

func TestValidator_AcceptsProcessorSignedResult(t *testing.T) {
	params := unsigned(signedResult("SUCCESS"))
	params.Set(ParamChecksum, "a80a3441fad54d50a58cf55873c8284ce675d2ee")

	res, err := NewValidator(testMerchant, testSecret).Validate(params, model.ChannelResult)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, res.Status)
}

func TestValidator_AcceptsProcessorSignedPostback(t *testing.T) {
	params := unsigned(signedPostback("OPEN", "1250"))
	params.Set(ParamChecksum, "88e41f5d659903d8f6612363f4c74dab54b3582b")

	res, err := NewValidator(testMerchant, testSecret).Validate(params, model.ChannelPostback)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), res.Amount)
}

func unsigned(params url.Values) url.Values {
	params.Del(ParamChecksum)
	return params
}

func TestBasicModeChecksum_KnownValue(t *testing.T) {
	params := url.Values{}
	params.Set(basicMerchantID, testMerchant)
	params.Set(basicAmount, "1250")
	params.Set(basicOrderID, "pay-1")
	params.Set(basicReference, "order-1")
	params.Set(basicCurrency, "EUR")
	params.Set(basicCountry, "NL")
	params.Set(basicURLCompleted, "https://shop.example.com/ok")
	params.Set(basicURLError, "https://shop.example.com/err")

	// merchant|secret|amount|orderid|reference|currency|country|urlcompleted|urlerror
	assert.Equal(t, "bce094081fe60a51748c077f0476d5fafd7bbe08", basicModeChecksum(params, testSecret))
}
