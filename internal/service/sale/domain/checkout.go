package domain

// CheckoutOptions 是一次结账的可选参数。
// PromotionID 非空时使用指定促销；否则 AutoPromotion 为 true 时自动选择折扣最大的促销。
type CheckoutOptions struct {
	PromotionID   string
	AutoPromotion bool
	PaymentMethod PaymentMethod
	Notes         string
}
