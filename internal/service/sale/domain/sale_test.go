package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSale_Amounts(t *testing.T) {
	items := []CartItem{
		{ProductID: "a", Name: "Apple", UnitPrice: d("100"), Quantity: 2},
		{ProductID: "b", Name: "Bread", UnitPrice: d("50"), Quantity: 6},
	}

	tests := []struct {
		name         string
		discount     string
		wantDiscount string
		wantTotal    string
	}{
		{"no discount", "0", "0", "500"},
		{"normal discount", "50", "50", "450"},
		{"discount clamped to subtotal", "900", "500", "0"},
		{"negative discount clamped to zero", "-5", "0", "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSale(SaleDraft{
				ID:             "s1",
				Items:          items,
				DiscountAmount: d(tt.discount),
				PaymentMethod:  PaymentCash,
				CreatedAt:      time.Now(),
			})
			require.NoError(t, err)
			assert.True(t, d("500").Equal(s.Subtotal))
			assert.True(t, d(tt.wantDiscount).Equal(s.DiscountAmount), s.DiscountAmount.String())
			assert.True(t, d(tt.wantTotal).Equal(s.TotalAmount), s.TotalAmount.String())
			assert.True(t, s.Subtotal.Sub(s.DiscountAmount).Equal(s.TotalAmount))
			assert.Equal(t, StatusCompleted, s.Status)
			require.Len(t, s.Items, 2)
			assert.True(t, d("300").Equal(s.Items[1].TotalPrice))
			assert.Equal(t, 8, s.TotalQuantity())
		})
	}
}

func TestNewSale_Rejects(t *testing.T) {
	_, err := NewSale(SaleDraft{PaymentMethod: PaymentCash})
	assert.ErrorIs(t, err, ErrEmptyCart)

	items := []CartItem{{ProductID: "a", UnitPrice: d("1"), Quantity: 1}}
	_, err = NewSale(SaleDraft{Items: items, PaymentMethod: "cheque"})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = NewSale(SaleDraft{Items: []CartItem{{ProductID: "a", UnitPrice: d("1"), Quantity: 0}}, PaymentMethod: PaymentQR})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestNewSale_PromotionReference(t *testing.T) {
	items := []CartItem{{ProductID: "a", UnitPrice: d("10"), Quantity: 1}}
	s, err := NewSale(SaleDraft{Items: items, PaymentMethod: PaymentCard, PromotionID: "p1", PromotionName: "Ten", DiscountAmount: d("1")})
	require.NoError(t, err)
	require.NotNil(t, s.PromotionID)
	assert.Equal(t, "p1", *s.PromotionID)
	assert.Equal(t, "Ten", s.PromotionName)

	s, err = NewSale(SaleDraft{Items: items, PaymentMethod: PaymentCard})
	require.NoError(t, err)
	assert.Nil(t, s.PromotionID)
}

func TestIncludedTax(t *testing.T) {
	tests := []struct {
		total, rate, want string
	}{
		{"107", "7", "7"},
		{"450", "7", "29.44"},
		{"100", "0", "0"},
		{"0", "7", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.total+"@"+tt.rate, func(t *testing.T) {
			got := IncludedTax(d(tt.total), d(tt.rate))
			assert.True(t, d(tt.want).Equal(got), got.String())
		})
	}
}

func TestCheckoutError_KindAndCause(t *testing.T) {
	cause := errors.New("stock shortage")
	err := error(&CheckoutError{
		Kind: KindInsufficientStock, Step: "commit", ProductID: "a", ProductName: "Apple",
		Requested: 3, Available: 2, Err: cause,
	})

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "InsufficientStock at commit: product Apple: only 2 in stock, 3 requested", err.Error())

	promo := &CheckoutError{Kind: KindPromotionNotApplicable, Step: "promotion", PromotionID: "P", Reason: "expired"}
	assert.Equal(t, "PromotionNotApplicable at promotion: promotion P: expired", promo.Error())

	ce, ok := AsCheckoutError(errors.Join(errors.New("outer"), promo))
	require.True(t, ok)
	assert.Equal(t, KindPromotionNotApplicable, ce.Kind)
}
