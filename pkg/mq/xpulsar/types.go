package xpulsar

import "github.com/omeyang/tracekit/internal/mqcore"

// Tracer 消息追踪器，nil 时使用默认头名称与 xspan.Default()。
type Tracer = mqcore.Tracer

// BackoffPolicy 消费循环的退避策略。
type BackoffPolicy = mqcore.BackoffPolicy

// NewTracer 创建消息追踪器。
var NewTracer = mqcore.NewTracer

// WithSpanTracer 指定创建 span 的 xspan.Tracer。
var WithSpanTracer = mqcore.WithSpanTracer

// WithHeaderNames 自定义追踪属性名称。
var WithHeaderNames = mqcore.WithHeaderNames
