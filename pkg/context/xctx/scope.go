package xctx

import (
	"context"
	"sync"
	"sync/atomic"
)

// Scope 记录一次 Acquire 期间写入的 key，Release 时负责清理。
//
// 清理规则：
//   - Scope 新增的 key 在 Release 时删除
//   - Scope 覆盖了已有值的 key，在 Release 时恢复为覆盖前的值
//
// Scope 只操作 Acquire 为它创建的 Store，嵌套的 Scope 之间互不干扰。
// Release 幂等，之后的 Set 被忽略。
type Scope struct {
	store    *Store
	mu       sync.Mutex
	entries  []scopeEntry
	seen     map[string]struct{}
	released atomic.Bool
}

type scopeEntry struct {
	key     string
	prev    string
	hadPrev bool
}

// Acquire 为工作单元获取诊断上下文。
//
// 每次调用都创建新的 Store 并绑定到返回的 context，工作单元之间从不共享 Store。
// ctx 上已绑定 Store 时（嵌套场景），新 Store 以其快照为初始内容，内层可读到外层的值，
// 但内层写入与 Release 都只作用于自己的 Store，不影响外层和并发的兄弟工作单元。
//
// 必须配对调用 Release，惯用写法：
//
//	ctx, scope := xctx.Acquire(ctx)
//	defer scope.Release()
//
// nil ctx 按 context.Background() 处理。
func Acquire(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	store := NewStore()
	if parent := StoreFrom(ctx); parent != nil {
		if snap := parent.Snapshot(); snap != nil {
			store.values = snap
		}
	}
	return context.WithValue(ctx, keyStore, store), &Scope{store: store}
}

// Run 在一个诊断上下文作用域内执行 fn，fn 返回或 panic 后都会执行 Release。
func Run(ctx context.Context, fn func(ctx context.Context, scope *Scope) error) error {
	ctx, scope := Acquire(ctx)
	defer scope.Release()
	if fn == nil {
		return nil
	}
	return fn(ctx, scope)
}

// Set 写入 key/value 并记录以便 Release 时清理。空 key 被忽略。
func (sc *Scope) Set(key, value string) {
	if sc == nil || key == "" || sc.released.Load() {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	prev, existed := sc.store.swap(key, value)
	if _, ok := sc.seen[key]; ok {
		return
	}
	if sc.seen == nil {
		sc.seen = make(map[string]struct{})
	}
	sc.seen[key] = struct{}{}
	sc.entries = append(sc.entries, scopeEntry{key: key, prev: prev, hadPrev: existed})
}

// SetAll 批量写入。
func (sc *Scope) SetAll(fields map[string]string) {
	for k, v := range fields {
		sc.Set(k, v)
	}
}

// Keys 返回本 Scope 写入过的 key（按写入顺序）。
func (sc *Scope) Keys() []string {
	if sc == nil {
		return nil
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	keys := make([]string, 0, len(sc.entries))
	for _, e := range sc.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Store 返回 Scope 关联的 Store。
func (sc *Scope) Store() *Store {
	if sc == nil {
		return nil
	}
	return sc.store
}

// Released 报告 Release 是否已执行。
func (sc *Scope) Released() bool {
	return sc == nil || sc.released.Load()
}

// Release 撤销本 Scope 的全部写入，逆序执行，幂等。
func (sc *Scope) Release() {
	if sc == nil || !sc.released.CompareAndSwap(false, true) {
		return
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for i := len(sc.entries) - 1; i >= 0; i-- {
		e := sc.entries[i]
		if e.hadPrev {
			sc.store.Set(e.key, e.prev)
		} else {
			sc.store.Remove(e.key)
		}
	}
	sc.entries = nil
	sc.seen = nil
}
