package icepay

import (
	"crypto/hmac"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"icepay-gateway/internal/domains/payment/model"
)

// Validator authenticates inbound ICEPAY payloads for one merchant.
type Validator struct {
	merchantID string
	secretCode string
}

func NewValidator(merchantID, secretCode string) *Validator {
	return &Validator{merchantID: merchantID, secretCode: secretCode}
}

// Validate checks the payload checksum and returns the parsed result.
// Every failure is a model.ErrValidation.
func (v *Validator) Validate(params url.Values, channel model.Channel) (*model.RemoteResult, error) {
	if channel != model.ChannelResult && channel != model.ChannelPostback {
		return nil, model.NewValidationError(fmt.Sprintf("unknown channel %q", channel))
	}

	for _, f := range requiredFields(channel) {
		if strings.TrimSpace(params.Get(f)) == "" {
			return nil, model.NewValidationError(fmt.Sprintf("missing field %s", f))
		}
	}

	if !hmac.Equal([]byte(params.Get(ParamMerchant)), []byte(v.merchantID)) {
		return nil, model.NewValidationError("unknown merchant")
	}

	if !VerifyChecksum(params, channel, v.secretCode) {
		return nil, model.NewValidationError("checksum mismatch")
	}

	status, ok := model.ParseStatusCode(params.Get(ParamStatus))
	if !ok {
		return nil, model.NewValidationError(fmt.Sprintf("unknown status %q", params.Get(ParamStatus)))
	}

	result := &model.RemoteResult{
		Channel:            channel,
		MerchantID:         params.Get(ParamMerchant),
		Status:             status,
		StatusText:         params.Get(ParamStatusCode),
		PaymentID:          params.Get(ParamOrderID),
		ProcessorPaymentID: params.Get(ParamPaymentID),
		Reference:          params.Get(ParamReference),
		TransactionID:      params.Get(ParamTransactionID),
		Currency:           strings.ToUpper(params.Get(ParamCurrency)),
		Duration:           params.Get(ParamDuration),
		ConsumerIP:         params.Get(ParamConsumerIP),
		Checksum:           params.Get(ParamChecksum),
	}

	if raw := params.Get(ParamAmount); raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || amount < 0 {
			return nil, model.NewValidationError(fmt.Sprintf("invalid amount %q", raw))
		}
		result.Amount = amount
		result.HasAmount = true
	}

	return result, nil
}

func requiredFields(channel model.Channel) []string {
	fields := []string{ParamStatus, ParamMerchant, ParamOrderID, ParamReference, ParamChecksum}
	if channel == model.ChannelPostback {
		fields = append(fields, ParamAmount, ParamCurrency)
	}
	return fields
}
