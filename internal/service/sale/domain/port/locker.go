package port

import "context"

// Locker 按 key 串行化对同一商品或促销的提交。
// 持久层自带条件更新时可以不用。
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
