package xid

import "time"

type options struct {
	machineID       func() (uint16, error)
	checkMachineID  func(uint16) bool
	maxWaitDuration time.Duration
	maxWaitSet      bool
	retryInterval   time.Duration
}

// Option 配置 Generator。
type Option func(*options)

// WithMachineID 设置机器 ID 获取函数，默认 [DefaultMachineID]。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(o *options) {
		o.machineID = fn
	}
}

// WithCheckMachineID 设置机器 ID 校验函数，返回 false 时 NewGenerator 失败。
func WithCheckMachineID(fn func(uint16) bool) Option {
	return func(o *options) {
		o.checkMachineID = fn
	}
}

// WithMaxWaitDuration 设置 NewWithRetry 的最大等待时间，默认 500ms。
// 传入 0 表示首次失败后立即返回。
func WithMaxWaitDuration(d time.Duration) Option {
	return func(o *options) {
		o.maxWaitDuration = d
		o.maxWaitSet = true
	}
}

// WithRetryInterval 设置 NewWithRetry 的重试间隔，默认 10ms。
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		o.retryInterval = d
	}
}
