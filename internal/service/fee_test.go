package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFee(t *testing.T) {
	fee, err := ResolveFee("Class A")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), fee)

	for _, class := range []string{"Class B", "Class C", "Class BC", "Class CE"} {
		fee, err := ResolveFee(class)
		require.NoError(t, err)
		assert.Equal(t, int64(11000), fee, class)
	}
}

func TestResolveFeeUnknownType(t *testing.T) {
	_, err := ResolveFee("Class Z")
	require.Error(t, err)

	_, err = ResolveFee("")
	require.Error(t, err)
}

func TestComputeBalance(t *testing.T) {
	assert.Equal(t, int64(11000), ComputeBalance(11000, 0))
	assert.Equal(t, int64(4000), ComputeBalance(11000, 7000))
	assert.Equal(t, int64(0), ComputeBalance(11000, 11000))
	assert.Equal(t, int64(-500), ComputeBalance(11000, 11500))
}

func TestClassifyPaymentStatus(t *testing.T) {
	tests := []struct {
		name      string
		balance   int64
		courseFee int64
		want      string
	}{
		{"zero balance is paid", 0, 11000, PaymentStatusPaid},
		{"overpayment is paid", -500, 11000, PaymentStatusPaid},
		{"under half outstanding is partial", 4000, 11000, PaymentStatusPartial},
		{"one below half is partial", 5499, 11000, PaymentStatusPartial},
		{"exactly half is unpaid", 5500, 11000, PaymentStatusUnpaid},
		{"full fee outstanding is unpaid", 11000, 11000, PaymentStatusUnpaid},
		{"class A exactly half is unpaid", 3500, 7000, PaymentStatusUnpaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPaymentStatus(tt.balance, tt.courseFee))
		})
	}
}
