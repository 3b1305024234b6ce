package infrastructure

import (
	"context"
	"sync"

	"nexuspos/internal/pkg/logger"
	"nexuspos/internal/zookeeper"
)

// LocalLocker 是进程内按 key 的互斥锁，适合单实例部署。
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *LocalLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// ZookeeperLocker 用 ZooKeeper 临时顺序节点实现跨实例的按 key 互斥。
type ZookeeperLocker struct {
	conn *zookeeper.Conn
}

func NewZookeeperLocker(conn *zookeeper.Conn) *ZookeeperLocker {
	return &ZookeeperLocker{conn: conn}
}

func (l *ZookeeperLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := lock.Unlock(); err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("key", key).Msg("Failed to release zookeeper lock")
			}
		})
	}, nil
}
