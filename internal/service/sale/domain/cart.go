package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("unit price must be greater than 0")
)

// CartItem 是购物车中的一行。UnitPrice 是加入购物车时的售价快照。
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal 总是由数量和单价现算，不单独保存。
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart 属于一个收银会话，只有一个写者，不做并发保护。
type Cart struct {
	items []CartItem
}

func NewCart() *Cart {
	return &Cart{}
}

// Add 加入商品。同一商品再次加入时合并数量，单价保持第一次加入时的快照。
func (c *Cart) Add(productID, name string, unitPrice decimal.Decimal, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: %s", ErrInvalidQuantity, productID)
	}
	if !unitPrice.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, productID)
	}
	if i := c.index(productID); i >= 0 {
		c.items[i].Quantity += quantity
		return nil
	}
	c.items = append(c.items, CartItem{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	})
	return nil
}

// SetQuantity 修改数量，数量不大于 0 时移除该行。商品不在购物车中时返回 false。
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeAt(i)
		return true
	}
	c.items[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items 返回购物车内容的副本，按加入顺序排列。
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (c *Cart) TotalQuantity() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}
