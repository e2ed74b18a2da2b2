package xlog

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level 日志级别，数值与 slog.Level 相同，可以直接互相转换。
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

func (l Level) String() string { return slog.Level(l).String() }

func (l Level) MarshalText() ([]byte, error) { return slog.Level(l).MarshalText() }

// UnmarshalText 配置文件可以直接写级别名。
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel 大小写不敏感，接受 slog 的写法（"info"、"WARN+2"）以及别名 "warning"。
func ParseLevel(s string) (Level, error) {
	name := strings.TrimSpace(s)
	if strings.EqualFold(name, "warning") {
		return LevelWarn, nil
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(name)); err != nil {
		return LevelInfo, fmt.Errorf("xlog: unknown level %q", s)
	}
	return Level(lv), nil
}
