// internal/zookeeper/conn.go
package zookeeper

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
	zlog "github.com/rs/zerolog/log"
)

// Conn 包装 zk.Conn，锁相关的操作都通过它进行。
type Conn struct {
	*zk.Conn
}

// Connect 连接 ZooKeeper 集群，并等待会话建立。
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	c, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("connect zookeeper %v: %w", servers, err)
	}

	deadline := time.After(sessionTimeout)
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				zlog.Info().Strs("servers", servers).Msg("ZooKeeper session established")
				return &Conn{Conn: c}, nil
			}
		case <-deadline:
			c.Close()
			return nil, fmt.Errorf("zookeeper session not established within %s", sessionTimeout)
		}
	}
}

// ensurePath 逐级创建持久节点，已存在的节点忽略。
func (c *Conn) ensurePath(path string) error {
	exists, _, err := c.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = c.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return err
	}
	return nil
}
