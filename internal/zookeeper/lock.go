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

const lockRoot = "/orderflow/locks" // 所有订单锁的根节点

// DistributedLock 是基于临时顺序节点的分布式锁：
// 序号最小者持锁，其余节点只监听自己的前驱，避免惊群。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁的父路径，例如 /orderflow/locks/<orderID>
	lockNode string // 成功入队后自己创建的节点路径
}

// NewDistributedLock 创建一个绑定到 resourceID 的锁实例。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	if err := ensurePath(conn, lockRoot); err != nil {
		return nil, err
	}
	lockPath := lockRoot + "/" + resourceID
	if err := ensurePath(conn, lockPath); err != nil {
		return nil, err
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// Lock 尝试获取锁，拿不到则阻塞等待，直到 ctx 超时或取消。
func (l *DistributedLock) Lock(ctx context.Context) error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential lock node: %w", err)
	}
	l.lockNode = nodePath

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("failed to list lock queue: %w", err)
		}
		sort.Strings(children)

		myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")
		if myNodeName == children[0] {
			return nil // 队首即持锁
		}

		// 监听自己的前驱节点
		prevNodeIndex := -1
		for i, child := range children {
			if child == myNodeName {
				prevNodeIndex = i - 1
				break
			}
		}
		if prevNodeIndex < 0 {
			return errors.New("own lock node missing from queue")
		}
		prevNodePath := l.path + "/" + children[prevNodeIndex]

		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			return fmt.Errorf("failed to watch previous lock node: %w", err)
		}
		if !exists {
			continue // 前驱刚好释放了，重新竞争
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			// 放弃排队时删掉自己的节点，别挡住后面的等待者
			_ = l.Unlock()
			return fmt.Errorf("gave up waiting for lock %s: %w", l.path, ctx.Err())
		}
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

func ensurePath(conn *Conn, path string) error {
	// 逐级创建，父路径通常已由初始化脚本建好
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	full := ""
	for _, part := range parts {
		full += "/" + part
		exists, _, err := conn.Exists(full)
		if err != nil {
			return fmt.Errorf("failed to check lock path %s: %w", full, err)
		}
		if exists {
			continue
		}
		if _, err := conn.Create(full, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			return fmt.Errorf("failed to create lock path %s: %w", full, err)
		}
	}
	return nil
}
