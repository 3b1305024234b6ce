// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/pos_locks" // 所有分布式锁的根节点
)

// ErrNotLocked 表示在未持有锁时调用了 Unlock。
var ErrNotLocked = errors.New("zookeeper: lock not held")

// DistributedLock 基于临时顺序节点的公平互斥锁，一个实例同一时间只能持有一次。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁的路径，例如 /pos_locks/product-123
	lockNode string // 成功获取锁后，自己创建的节点路径
}

// NewDistributedLock 创建一个新的分布式锁实例，并确保锁路径存在。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	if err := conn.ensurePath(lockRoot); err != nil {
		return nil, fmt.Errorf("create lock root node: %w", err)
	}

	lockPath := lockRoot + "/" + sanitize(resourceID)
	if err := conn.ensurePath(lockPath); err != nil {
		return nil, fmt.Errorf("create lock path node %s: %w", lockPath, err)
	}

	return &DistributedLock{
		conn: conn,
		path: lockPath,
	}, nil
}

// Lock 阻塞直到获取锁或 ctx 结束。ctx 结束时会删除自己的排队节点。
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 1. 在锁路径下创建一个临时顺序节点: /pos_locks/resourceID/lock-
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath

	for {
		if err := ctx.Err(); err != nil {
			l.abandon()
			return err
		}

		// 2. 获取锁路径下的所有子节点，按序号排序
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sort.Slice(children, func(i, j int) bool { return sequence(children[i]) < sequence(children[j]) })

		// 3. 自己是最小节点即获得锁
		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if len(children) > 0 && myNodeName == children[0] {
			return nil
		}

		// 4. 不是最小节点，监听前一个节点
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			l.abandon()
			return errors.New("cannot find previous node, something is wrong")
		}
		prevNodePath := l.path + "/" + children[prevNodeIndex]

		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			// 前一个节点在检查时刚好被删除，重新竞争
			continue
		}

		select {
		case <-eventChan:
			// 任何事件都重新检查一遍子节点
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return ErrNotLocked
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abandon() {
	if l.lockNode != "" {
		_ = l.conn.Delete(l.lockNode, -1)
		l.lockNode = ""
	}
}

// sequence 取出顺序节点名末尾的 10 位序号。
// protected 节点名带 GUID 前缀，不能直接按字符串排序。
func sequence(node string) string {
	if len(node) < 10 {
		return node
	}
	return node[len(node)-10:]
}

func sanitize(resourceID string) string {
	return strings.ReplaceAll(resourceID, "/", "_")
}
