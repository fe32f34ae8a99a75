package icepay

import (
	"fmt"
	"time"
)

// =====================================================
// ICEPAY CONFIGURATION
// =====================================================

type Config struct {
	MerchantID   string        // Merchant ID (provided by ICEPAY)
	SecretCode   string        // Shared secret for SHA1 checksums
	APIURL       string        // ICEPAY base URL
	ReturnURL    string        // Default success URL
	CancelURL    string        // Default error URL
	DisplayLabel string        // Name shown to payers
	TestMode     bool          // Payments are created in test mode
	Timeout      time.Duration // Outbound HTTP timeout
}

// NewConfig creates ICEPAY configuration
func NewConfig(merchantID, secretCode, apiURL, returnURL, cancelURL string) *Config {
	return &Config{
		MerchantID:   merchantID,
		SecretCode:   secretCode,
		APIURL:       apiURL,
		ReturnURL:    returnURL,
		CancelURL:    cancelURL,
		DisplayLabel: "ICEPAY",
		Timeout:      30 * time.Second,
	}
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.MerchantID == "" {
		return fmt.Errorf("ICEPAY MerchantID is required")
	}
	if c.SecretCode == "" {
		return fmt.Errorf("ICEPAY SecretCode is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("ICEPAY APIURL is required")
	}
	return nil
}

// GetBasicModeURL returns the basic-mode initiation endpoint
func (c *Config) GetBasicModeURL() string {
	return c.APIURL + "/basic/"
}

// =====================================================
// ICEPAY PROTOCOL FIELDS
// =====================================================

const (
	ParamStatus        = "Status"
	ParamStatusCode    = "StatusCode"
	ParamMerchant      = "Merchant"
	ParamOrderID       = "OrderID"
	ParamPaymentID     = "PaymentID"
	ParamReference     = "Reference"
	ParamTransactionID = "TransactionID"
	ParamAmount        = "Amount"
	ParamCurrency      = "Currency"
	ParamDuration      = "Duration"
	ParamConsumerIP    = "ConsumerIPAddress"
	ParamChecksum      = "Checksum"
)

// Basic-mode request fields
const (
	basicMerchantID   = "ic_merchantid"
	basicAmount       = "ic_amount"
	basicCurrency     = "ic_currency"
	basicCountry      = "ic_country"
	basicLanguage     = "ic_language"
	basicOrderID      = "ic_orderid"
	basicReference    = "ic_reference"
	basicDescription  = "ic_description"
	basicURLCompleted = "ic_urlcompleted"
	basicURLError     = "ic_urlerror"
	basicVersion      = "ic_version"
	basicChecksum     = "chk"

	basicModeVersion = "2"
)
