package xsetup

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/omeyang/tracekit/pkg/config/xconf"
	"github.com/omeyang/tracekit/pkg/context/xcorrelate"
	"github.com/omeyang/tracekit/pkg/observability/xexport"
	"github.com/omeyang/tracekit/pkg/observability/xlog"
)

// ConfigPath 配置文件中 Properties 所在的节点。
const ConfigPath = "observability"

// ErrInvalidProperties 配置校验失败。
var ErrInvalidProperties = errors.New("xsetup: invalid properties")

// Properties tracekit 的全部配置。
type Properties struct {
	ServiceName string                `koanf:"service-name"`
	Tracing     TracingProperties     `koanf:"tracing"`
	Logging     LoggingProperties     `koanf:"logging"`
	Correlation CorrelationProperties `koanf:"correlation"`
}

// TracingProperties 追踪相关配置。
type TracingProperties struct {
	// Enabled 总开关，关闭时三类边界都不创建 span。
	Enabled           bool               `koanf:"enabled"`
	SamplingRatio     float64            `koanf:"sampling-ratio"`
	Exporter          string             `koanf:"exporter"`
	Endpoint          string             `koanf:"endpoint"`
	Insecure          bool               `koanf:"insecure"`
	ExporterTimeoutMS int                `koanf:"exporter-timeout-ms"`
	Boundaries        BoundaryProperties `koanf:"boundaries"`
	Breaker           BreakerProperties  `koanf:"breaker"`
}

// BoundaryProperties 各边界类型的开关。
type BoundaryProperties struct {
	Server   bool `koanf:"server"`
	Producer bool `koanf:"producer"`
	Consumer bool `koanf:"consumer"`
}

// BreakerProperties 导出熔断配置，Failures 为 0 时不熔断。
type BreakerProperties struct {
	Failures      uint32 `koanf:"failures"`
	OpenTimeoutMS int    `koanf:"open-timeout-ms"`
}

// LoggingProperties 日志与诊断上下文配置。
type LoggingProperties struct {
	Level              string            `koanf:"level"`
	Format             string            `koanf:"format"`
	IncludeMDC         bool              `koanf:"include-mdc"`
	IncludeHeaders     bool              `koanf:"include-headers"`
	HeaderFilter       string            `koanf:"header-filter"`
	IncludeRequestInfo bool              `koanf:"include-request-info"`
	CustomFields       map[string]string `koanf:"custom-fields"`

	// File 非空时写入按大小轮转的文件，否则写 stderr。
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max-size-mb"`
	MaxBackups int    `koanf:"max-backups"`
	MaxAgeDays int    `koanf:"max-age-days"`
	Compress   bool   `koanf:"compress"`
}

// CorrelationProperties 关联标识配置。
type CorrelationProperties struct {
	RequestID     string `koanf:"request-id"`
	ShortIDLength int    `koanf:"short-id-length"`
	TraceHeader   string `koanf:"trace-header"`
	SpanHeader    string `koanf:"span-header"`
}

// DefaultProperties 返回默认配置。
func DefaultProperties() Properties {
	return Properties{
		ServiceName: xexport.DefaultServiceName,
		Tracing: TracingProperties{
			Enabled:           true,
			SamplingRatio:     1.0,
			Exporter:          string(xexport.KindOTLPGRPC),
			Endpoint:          xexport.DefaultEndpoint,
			Insecure:          true,
			ExporterTimeoutMS: int(xexport.DefaultTimeout.Milliseconds()),
			Boundaries:        BoundaryProperties{Server: true, Producer: true, Consumer: true},
			Breaker: BreakerProperties{
				Failures:      xexport.DefaultBreakerFailures,
				OpenTimeoutMS: int(xexport.DefaultBreakerOpenTimeout.Milliseconds()),
			},
		},
		Logging: LoggingProperties{
			Level:              "info",
			Format:             xlog.FormatJSON,
			IncludeMDC:         true,
			IncludeRequestInfo: true,
			MaxSizeMB:          100,
			MaxBackups:         7,
			MaxAgeDays:         30,
			Compress:           true,
		},
		Correlation: CorrelationProperties{
			RequestID:     string(xcorrelate.RequestIDUUID),
			ShortIDLength: 8,
			TraceHeader:   xcorrelate.HeaderTraceID,
			SpanHeader:    xcorrelate.HeaderSpanID,
		},
	}
}

// Load 从 cfg 的 observability 节点读取配置，未出现的键保留默认值。
func Load(cfg *xconf.Config) (Properties, error) {
	props := DefaultProperties()
	if err := cfg.Unmarshal(ConfigPath, &props); err != nil {
		return Properties{}, err
	}
	if err := props.Validate(); err != nil {
		return Properties{}, err
	}
	return props, nil
}

// Validate 校验配置，返回的错误包含全部问题并匹配 ErrInvalidProperties。
func (p Properties) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidProperties}, args...)...))
	}

	t := p.Tracing
	// 越界的比率由 Setup/Apply 钳制，只有 NaN 无法解释
	if math.IsNaN(t.SamplingRatio) {
		add("tracing.sampling-ratio is NaN")
	}
	if _, err := xexport.ParseKind(t.Exporter); err != nil {
		add("tracing.exporter %q", t.Exporter)
	}
	if t.ExporterTimeoutMS <= 0 {
		add("tracing.exporter-timeout-ms must be positive, got %d", t.ExporterTimeoutMS)
	}
	if t.Breaker.Failures > 0 && t.Breaker.OpenTimeoutMS <= 0 {
		add("tracing.breaker.open-timeout-ms must be positive, got %d", t.Breaker.OpenTimeoutMS)
	}

	l := p.Logging
	if _, err := xlog.ParseLevel(l.Level); err != nil {
		add("logging.level %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case xlog.FormatJSON, xlog.FormatText:
	default:
		add("logging.format %q, want json or text", l.Format)
	}
	if l.File != "" && l.MaxSizeMB <= 0 {
		add("logging.max-size-mb must be positive, got %d", l.MaxSizeMB)
	}
	if l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		add("logging.max-backups and logging.max-age-days must not be negative")
	}

	c := p.Correlation
	switch xcorrelate.RequestIDSource(c.RequestID) {
	case xcorrelate.RequestIDUUID, xcorrelate.RequestIDSonyflake:
	default:
		add("correlation.request-id %q, want uuid or sonyflake", c.RequestID)
	}
	if c.ShortIDLength < 0 || c.ShortIDLength > 32 {
		add("correlation.short-id-length %d out of [0, 32]", c.ShortIDLength)
	}

	return errors.Join(errs...)
}

// Map 以 koanf 键名把配置展开为嵌套 map，用于打印生效配置。
func (p Properties) Map() map[string]any {
	return structMap(reflect.ValueOf(p))
}

func structMap(v reflect.Value) map[string]any {
	out := make(map[string]any, v.NumField())
	t := v.Type()
	for i := range t.NumField() {
		key := t.Field(i).Tag.Get("koanf")
		if key == "" {
			continue
		}
		f := v.Field(i)
		if f.Kind() == reflect.Struct {
			out[key] = structMap(f)
			continue
		}
		out[key] = f.Interface()
	}
	return out
}
