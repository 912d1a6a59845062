package service

import (
	"fmt"
)

// PaymentStatus labels how much of the course fee has been settled.
const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

// feeTable fixes the course fee by licence class. Fees are set here at
// course creation and snapshotted onto students at enrollment.
var feeTable = map[string]int64{
	"Class A":  7000,
	"Class B":  11000,
	"Class C":  11000,
	"Class BC": 11000,
	"Class CE": 11000,
}

// ResolveFee returns the fixed fee for a course type. Unknown types are an
// error, never a default.
func ResolveFee(courseType string) (int64, error) {
	fee, ok := feeTable[courseType]
	if !ok {
		return 0, fmt.Errorf("unknown course type %q", courseType)
	}
	return fee, nil
}

// CourseTypes lists the accepted course types.
func CourseTypes() []string {
	types := make([]string, 0, len(feeTable))
	for t := range feeTable {
		types = append(types, t)
	}
	return types
}

// ComputeBalance derives the outstanding amount owed.
func ComputeBalance(courseFee, totalPaid int64) int64 {
	return courseFee - totalPaid
}

// ClassifyPaymentStatus buckets a balance: cleared, under half the fee
// outstanding, or at least half outstanding. Exactly half counts as unpaid.
func ClassifyPaymentStatus(balance, courseFee int64) string {
	switch {
	case balance <= 0:
		return PaymentStatusPaid
	case balance < courseFee/2:
		return PaymentStatusPartial
	default:
		return PaymentStatusUnpaid
	}
}
