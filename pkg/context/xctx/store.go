package xctx

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// =============================================================================
// Store 诊断上下文存储
// =============================================================================

// Store 是一个工作单元内的诊断上下文（key/value 均为字符串）。
//
// 每个工作单元（一次 HTTP 请求、一条消息）持有独立的 Store，由 Acquire 绑定到 context，
// 生命周期与工作单元一致。读写都加锁：业务 goroutine 写入的同时，
// 日志 handler 可能在另一个 goroutine 中读取。
//
// 零值不可用，请通过 NewStore 或 Acquire 获取。
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore 创建空的诊断上下文存储。
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Set 写入 key/value。空 key 被忽略。
func (s *Store) Set(key, value string) {
	if s == nil || key == "" {
		return
	}
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

// Get 读取 key 对应的值。
func (s *Store) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok
}

// Remove 删除 key，不存在时为空操作。
func (s *Store) Remove(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Len 返回当前条目数。
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Keys 返回按字典序排列的 key 列表。
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	keys := slices.Sorted(maps.Keys(s.values))
	s.mu.RUnlock()
	return keys
}

// Snapshot 返回当前内容的副本，修改副本不影响 Store。
func (s *Store) Snapshot() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Range 按 key 的字典序遍历快照，fn 返回 false 时停止。
//
// 遍历基于快照，fn 内部可以安全地读写 Store。
func (s *Store) Range(fn func(key, value string) bool) {
	if s == nil || fn == nil {
		return
	}
	snap := s.Snapshot()
	for _, k := range slices.Sorted(maps.Keys(snap)) {
		if !fn(k, snap[k]) {
			return
		}
	}
}

// swap 写入新值并返回旧值，供 Scope 记录恢复信息。
func (s *Store) swap(key, value string) (prev string, existed bool) {
	s.mu.Lock()
	prev, existed = s.values[key]
	s.values[key] = value
	s.mu.Unlock()
	return prev, existed
}

// =============================================================================
// Context 辅助函数
// =============================================================================

// StoreFrom 返回 context 上绑定的 Store，未绑定时返回 nil。
func StoreFrom(ctx context.Context) *Store {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(keyStore).(*Store)
	return s
}

// WithStore 将 store 绑定到 context。
//
// 通常不需要直接调用，Acquire 会创建并绑定。
// 用于把同一个工作单元的 Store 传递给异步派生的 goroutine；
// 派生 goroutine 若再调用 Acquire，会得到以该 Store 快照为初始内容的独立 Store。
func WithStore(ctx context.Context, store *Store) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if store == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, keyStore, store), nil
}

// Value 读取当前工作单元诊断上下文中 key 的值，不存在返回空字符串。
func Value(ctx context.Context, key string) string {
	v, _ := StoreFrom(ctx).Get(key)
	return v
}

// Put 向当前工作单元的诊断上下文写入 key/value。
//
// 面向业务代码的便捷写入：写入不被任何 Scope 跟踪，随工作单元的 Store 一起丢弃。
// 引擎自身写入一律通过 Scope.Set，以保证出口处清理。
func Put(ctx context.Context, key, value string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if key == "" {
		return ErrEmptyKey
	}
	s := StoreFrom(ctx)
	if s == nil {
		return ErrNoStore
	}
	s.Set(key, value)
	return nil
}

// RequestID 返回诊断上下文中的 requestId。
func RequestID(ctx context.Context) string { return Value(ctx, KeyRequestID) }

// TraceID 返回诊断上下文中的 traceId。
func TraceID(ctx context.Context) string { return Value(ctx, KeyTraceID) }

// SpanID 返回诊断上下文中的 spanId。
func SpanID(ctx context.Context) string { return Value(ctx, KeySpanID) }
