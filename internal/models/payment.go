package models

import "time"

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	MethodMpesa PaymentMethod = "mpesa"
	MethodCash  PaymentMethod = "cash"
	MethodBank  PaymentMethod = "bank"
	MethodOther PaymentMethod = "other"
)

// ValidPaymentMethod reports whether the method is a known tender type.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodMpesa, MethodCash, MethodBank, MethodOther:
		return true
	}
	return false
}

// Payment is an append-only record of money received. Creating one also
// applies the amount to the student's running totals.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	Amount        int64         `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	TransactionID *string       `db:"transaction_id" json:"transaction_id,omitempty"`
	PaymentDate   time.Time     `db:"payment_date" json:"payment_date"`
	ReceiptNumber string        `db:"receipt_number" json:"receipt_number"`
	CreatedBy     *string       `db:"created_by" json:"created_by,omitempty"`
	Branch        string        `db:"branch" json:"branch,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// PaymentFilter restricts payment listings.
type PaymentFilter struct {
	StudentID string
	Method    string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// MpesaTransactionStatus tracks an STK push through its lifecycle.
type MpesaTransactionStatus string

const (
	MpesaPending   MpesaTransactionStatus = "pending"
	MpesaConfirmed MpesaTransactionStatus = "confirmed"
	MpesaFailed    MpesaTransactionStatus = "failed"
)

// MpesaTransaction correlates an initiated push with its asynchronous
// callback outcome via CheckoutRequestID.
type MpesaTransaction struct {
	ID                string                 `db:"id" json:"id"`
	MerchantRequestID string                 `db:"merchant_request_id" json:"merchant_request_id"`
	CheckoutRequestID string                 `db:"checkout_request_id" json:"checkout_request_id"`
	PhoneNumber       string                 `db:"phone_number" json:"phone_number"`
	Amount            int64                  `db:"amount" json:"amount"`
	AccountReference  string                 `db:"account_reference" json:"account_reference"`
	Status            MpesaTransactionStatus `db:"status" json:"status"`
	ResultCode        *int                   `db:"result_code" json:"result_code,omitempty"`
	ResultDesc        string                 `db:"result_desc" json:"result_desc,omitempty"`
	MpesaReceipt      string                 `db:"mpesa_receipt" json:"mpesa_receipt,omitempty"`
	CreatedAt         time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time              `db:"updated_at" json:"updated_at"`
}
