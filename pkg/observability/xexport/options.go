package xexport

import (
	"io"
	"time"
)

const (
	// DefaultEndpoint OTLP gRPC 默认地址。
	DefaultEndpoint = "localhost:4317"
	// DefaultTimeout 单次导出超时。
	DefaultTimeout = 10 * time.Second
	// DefaultBreakerFailures 连续失败多少批次后熔断。
	DefaultBreakerFailures = 5
	// DefaultBreakerOpenTimeout 熔断持续时间。
	DefaultBreakerOpenTimeout = 30 * time.Second
	// DefaultServiceName 未配置服务名时使用的值。
	DefaultServiceName = "unknown_service"
)

type options struct {
	endpoint        string
	insecure        bool
	timeout         time.Duration
	serviceName     string
	sync            bool
	writer          io.Writer
	breakerFailures uint32
	breakerOpen     time.Duration
}

func defaultOptions() *options {
	return &options{
		endpoint:        DefaultEndpoint,
		timeout:         DefaultTimeout,
		serviceName:     DefaultServiceName,
		breakerFailures: DefaultBreakerFailures,
		breakerOpen:     DefaultBreakerOpenTimeout,
	}
}

// Option 配置 Exporter。
type Option func(*options)

// WithEndpoint 设置 OTLP 地址。otlp-http 接受带 http:// 或 https:// 前缀的地址，
// http:// 隐含 insecure。空值被忽略。
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithInsecure 关闭 OTLP 传输层 TLS。
func WithInsecure(insecure bool) Option {
	return func(o *options) { o.insecure = insecure }
}

// WithTimeout 设置单次导出超时，非正值被忽略。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithServiceName 设置 resource 的 service.name。
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithSyncExport 使用同步处理器，每个 span 结束时立即导出。仅用于测试与调试。
func WithSyncExport() Option {
	return func(o *options) { o.sync = true }
}

// WithWriter 设置 stdout 导出器的输出目标，默认 os.Stdout。
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithBreaker 配置熔断：连续 failures 个批次失败后熔断 open 时长。
// failures 为 0 时关闭熔断。
func WithBreaker(failures uint32, open time.Duration) Option {
	return func(o *options) {
		o.breakerFailures = failures
		if open > 0 {
			o.breakerOpen = open
		}
	}
}
