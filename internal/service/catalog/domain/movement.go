package domain

import (
	"fmt"
	"time"
)

// MovementType 库存变动类型
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

const ReasonSale = "Sale"

// InventoryMovement 记录一次库存变动，Quantity 是带符号的变化量。
type InventoryMovement struct {
	ID           string
	ProductID    string
	MovementType MovementType
	Quantity     int
	Reason       string
	ReferenceID  string // 销售出库时为销售单 ID
	Notes        string
	CreatedAt    time.Time
}

// SignedDelta 把管理端输入的（类型, 数量）换算成库存变化量。
// in/out 的数量必须为正；adjustment 的数量本身带符号且不能为 0。
func SignedDelta(t MovementType, quantity int) (int, error) {
	switch t {
	case MovementIn:
		if quantity <= 0 {
			return 0, fmt.Errorf("%w: quantity for %s must be positive", ErrInvalidProduct, t)
		}
		return quantity, nil
	case MovementOut:
		if quantity <= 0 {
			return 0, fmt.Errorf("%w: quantity for %s must be positive", ErrInvalidProduct, t)
		}
		return -quantity, nil
	case MovementAdjustment:
		if quantity == 0 {
			return 0, fmt.Errorf("%w: adjustment must not be zero", ErrInvalidProduct)
		}
		return quantity, nil
	default:
		return 0, fmt.Errorf("%w: unknown movement type %q", ErrInvalidProduct, t)
	}
}
