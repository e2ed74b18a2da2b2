package xrotate

import (
	"errors"
	"io"
)

var _ io.WriteCloser = (Rotator)(nil)

// Rotator 日志轮转器。
//
// 实现必须并发安全；Close 之后的 Write 与 Rotate 返回 ErrClosed。
type Rotator interface {
	Write(p []byte) (n int, err error)
	Close() error
	// Rotate 手动触发轮转：当前文件重命名为备份，打开新文件。
	Rotate() error
}

// 配置校验错误
var (
	ErrEmptyFilename     = errors.New("xrotate: filename is required")
	ErrInvalidMaxSize    = errors.New("xrotate: invalid max size")
	ErrInvalidMaxBackups = errors.New("xrotate: invalid max backups")
	ErrInvalidMaxAge     = errors.New("xrotate: invalid max age")
	ErrClosed            = errors.New("xrotate: rotator is closed")
)
