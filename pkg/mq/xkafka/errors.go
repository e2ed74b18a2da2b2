package xkafka

import (
	"errors"

	"github.com/omeyang/tracekit/internal/mqcore"
)

// 重导出共享错误
var (
	// ErrNilMessage 表示传入的消息为空。
	ErrNilMessage = mqcore.ErrNilMessage

	// ErrNilHandler 表示传入的处理函数为空。
	ErrNilHandler = mqcore.ErrNilHandler

	// ErrClosed 表示客户端已关闭。
	ErrClosed = mqcore.ErrClosed
)

var (
	// ErrNilConfig 表示传入的配置为空。
	ErrNilConfig = errors.New("xkafka: nil config")

	// ErrFlushTimeout 表示关闭时消息刷新超时。
	ErrFlushTimeout = errors.New("xkafka: flush timeout")

	// ErrEmptyTopics 表示订阅的主题列表为空。
	ErrEmptyTopics = errors.New("xkafka: empty topics")
)
