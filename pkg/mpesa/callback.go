package mpesa

import "strconv"

// Callback is the asynchronous result Daraja posts once the customer acts
// on the PIN prompt (or the prompt times out).
type Callback struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback carries the outcome for a single push, correlated by
// CheckoutRequestID. ResultCode 0 means the customer paid.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is Daraja's name/value item bag present on success.
type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

// CallbackItem is a single metadata entry.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// Succeeded reports whether the customer completed the payment.
func (c StkCallback) Succeeded() bool {
	return c.ResultCode == 0
}

// MetadataString extracts a metadata item by name, formatted as a string.
func (c StkCallback) MetadataString(name string) string {
	if c.CallbackMetadata == nil {
		return ""
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name || item.Value == nil {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			// JSON numbers decode as float64; phone numbers arrive as
			// whole values.
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// MetadataAmount extracts the paid amount, zero when absent.
func (c StkCallback) MetadataAmount() int64 {
	if c.CallbackMetadata == nil {
		return 0
	}
	for _, item := range c.CallbackMetadata.Item {
		if item.Name != "Amount" {
			continue
		}
		if v, ok := item.Value.(float64); ok {
			return int64(v)
		}
	}
	return 0
}
