package xpulsar

import (
	"errors"

	"github.com/omeyang/tracekit/internal/mqcore"
)

// 共享错误（从 mqcore 重导出）
var (
	// ErrNilMessage 消息为 nil
	ErrNilMessage = mqcore.ErrNilMessage

	// ErrNilHandler 处理函数为 nil
	ErrNilHandler = mqcore.ErrNilHandler
)

var (
	// ErrNilProducer 生产者为 nil
	ErrNilProducer = errors.New("xpulsar: nil producer")

	// ErrNilConsumer 消费者为 nil
	ErrNilConsumer = errors.New("xpulsar: nil consumer")
)
