package icepay

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"

	"icepay-gateway/internal/domains/payment/model"
)

// =====================================================
// ICEPAY CHECKSUM
// =====================================================

// resultFields is the checksum field order for browser returns. Merchant
// comes first, right after the secret code.
var resultFields = []string{
	ParamMerchant,
	ParamStatus,
	ParamStatusCode,
	ParamOrderID,
	ParamPaymentID,
	ParamReference,
	ParamTransactionID,
}

// postbackFields extends resultFields with the postback-only values.
var postbackFields = append(append([]string{}, resultFields...),
	ParamAmount,
	ParamCurrency,
	ParamDuration,
	ParamConsumerIP,
)

func fieldsFor(channel model.Channel) []string {
	if channel == model.ChannelPostback {
		return postbackFields
	}
	return resultFields
}

// GenerateChecksum computes the SHA1 checksum ICEPAY attaches to a payload:
// secret code followed by the channel's fields, joined with "|".
func GenerateChecksum(params url.Values, channel model.Channel, secretCode string) string {
	fields := fieldsFor(channel)
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, secretCode)
	for _, f := range fields {
		parts = append(parts, params.Get(f))
	}
	return sha1Hex(strings.Join(parts, "|"))
}

// VerifyChecksum compares the embedded checksum in constant time.
func VerifyChecksum(params url.Values, channel model.Channel, secretCode string) bool {
	received := strings.ToLower(params.Get(ParamChecksum))
	if received == "" {
		return false
	}
	expected := GenerateChecksum(params, channel, secretCode)
	return hmac.Equal([]byte(received), []byte(expected))
}

// basicModeChecksum signs an outbound basic-mode request.
func basicModeChecksum(params url.Values, secretCode string) string {
	return sha1Hex(strings.Join([]string{
		params.Get(basicMerchantID),
		secretCode,
		params.Get(basicAmount),
		params.Get(basicOrderID),
		params.Get(basicReference),
		params.Get(basicCurrency),
		params.Get(basicCountry),
		params.Get(basicURLCompleted),
		params.Get(basicURLError),
	}, "|"))
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
