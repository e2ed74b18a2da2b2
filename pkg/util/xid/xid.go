package xid

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sony/sonyflake/v2"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrClockBackwardTimeout 等待时钟追上超时。
	ErrClockBackwardTimeout = errors.New("xid: clock backward wait timeout")

	// ErrInvalidID ID 无法解析或不是正数。
	ErrInvalidID = errors.New("xid: invalid id")

	// ErrOverTimeLimit 时间分量溢出，不可恢复。
	ErrOverTimeLimit = errors.New("xid: time component overflow")

	// ErrNoPrivateAddress 没有可用的私有 IPv4 地址。
	ErrNoPrivateAddress = errors.New("xid: no private IP address found")

	// ErrNilContext context 参数为 nil。
	ErrNilContext = errors.New("xid: nil context")

	// ErrInvalidConfig 配置参数无效。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrNilGenerator 生成器为 nil 或未通过 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator")
)

const (
	// DefaultMaxWaitDuration 时钟回拨时的默认最大等待时间。
	DefaultMaxWaitDuration = 500 * time.Millisecond

	// DefaultRetryInterval 默认重试间隔，与 sonyflake 的 10ms 时间精度一致。
	DefaultRetryInterval = 10 * time.Millisecond
)

// Sonyflake v2 固定位布局：39 位时间 + 8 位序列 + 16 位机器。
const (
	machineBits  = 16
	sequenceBits = 8
	machineMask  = (1 << machineBits) - 1
	sequenceMask = (1 << sequenceBits) - 1
)

// Components 是 ID 分解后的各组成部分。
type Components struct {
	ID       int64
	Time     int64 // 10ms 单位，自 sonyflake epoch 起
	Sequence int64
	Machine  int64
}

// =============================================================================
// Generator
// =============================================================================

// Generator 时间有序的分布式 ID 生成器，并发安全。
type Generator struct {
	maxWaitDuration time.Duration
	retryInterval   time.Duration
	generateID      func() (int64, error)
}

// NewGenerator 创建独立的生成器。未设置 WithMachineID 时使用 [DefaultMachineID]。
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.maxWaitDuration < 0 {
		return nil, fmt.Errorf("%w: max wait duration must be non-negative, got %s", ErrInvalidConfig, cfg.maxWaitDuration)
	}
	if cfg.retryInterval < 0 {
		return nil, fmt.Errorf("%w: retry interval must be non-negative, got %s", ErrInvalidConfig, cfg.retryInterval)
	}

	machineID := cfg.machineID
	if machineID == nil {
		machineID = DefaultMachineID
	}
	settings := sonyflake.Settings{
		MachineID: func() (int, error) {
			id, err := machineID()
			return int(id), err
		},
	}
	if cfg.checkMachineID != nil {
		settings.CheckMachineID = func(id int) bool {
			return cfg.checkMachineID(uint16(id))
		}
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	g := &Generator{
		maxWaitDuration: DefaultMaxWaitDuration,
		retryInterval:   DefaultRetryInterval,
		generateID:      sf.NextID,
	}
	if cfg.maxWaitSet {
		g.maxWaitDuration = cfg.maxWaitDuration
	}
	if cfg.retryInterval > 0 {
		g.retryInterval = cfg.retryInterval
	}
	return g, nil
}

func (g *Generator) validate() error {
	if g == nil || g.generateID == nil {
		return ErrNilGenerator
	}
	return nil
}

// New 生成一个 ID。时间分量溢出时返回 [ErrOverTimeLimit]。
func (g *Generator) New() (int64, error) {
	if err := g.validate(); err != nil {
		return 0, err
	}
	id, err := g.generateID()
	if err != nil {
		return 0, wrapGenerateErr(err)
	}
	return id, nil
}

// NewWithRetry 生成一个 ID，遇到可重试错误时按 retryInterval 重试，
// 超过 maxWaitDuration 返回 [ErrClockBackwardTimeout]。支持 ctx 取消。
func (g *Generator) NewWithRetry(ctx context.Context) (int64, error) {
	if err := g.validate(); err != nil {
		return 0, err
	}
	if ctx == nil {
		return 0, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := g.generateID()
	if err == nil {
		return id, nil
	}
	if errors.Is(err, sonyflake.ErrOverTimeLimit) {
		return 0, wrapGenerateErr(err)
	}

	deadline := time.Now().Add(g.maxWaitDuration)
	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, fmt.Errorf("%w: %w", ErrClockBackwardTimeout, err)
		}
		timer.Reset(min(g.retryInterval, remaining))
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}

		id, err = g.generateID()
		if err == nil {
			return id, nil
		}
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, wrapGenerateErr(err)
		}
	}
}

// NewString 生成一个 base36 编码的 ID。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 36), nil
}

func wrapGenerateErr(err error) error {
	if errors.Is(err, sonyflake.ErrOverTimeLimit) {
		return fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
	}
	return err
}

// =============================================================================
// 解析
// =============================================================================

// Parse 解析 NewString 生成的 base36 字符串，大小写不敏感。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return id, nil
}

// Decompose 按固定位布局分解 ID，不依赖生成器。
func Decompose(id int64) (Components, error) {
	if id <= 0 {
		return Components{}, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return Components{
		ID:       id,
		Machine:  id & machineMask,
		Sequence: (id >> machineBits) & sequenceMask,
		Time:     id >> (machineBits + sequenceBits),
	}, nil
}
