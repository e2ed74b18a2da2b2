package xctx

import "errors"

// =============================================================================
// Context Key 类型定义
// =============================================================================

// contextKey 包私有的 context key 类型，避免与其他包冲突。
type contextKey string

const keyStore = contextKey("xctx:diagnostic_store")

// =============================================================================
// 诊断上下文 Key 常量
// =============================================================================

// 诊断上下文中由关联策略写入的标准 key。
// 日志子系统按原样输出这些 key，下游日志平台按这些名称检索。
const (
	KeyRequestID = "requestId"
	KeyTraceID   = "traceId"
	KeySpanID    = "spanId"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrNoStore 表示 context 上没有绑定诊断上下文存储。
	// 通常意味着调用方不在 Acquire/Run 包裹的工作单元内。
	ErrNoStore = errors.New("xctx: no diagnostic store bound to context")

	// ErrEmptyKey 表示写入的 key 为空。
	ErrEmptyKey = errors.New("xctx: empty key")
)
