// Package xsetup 按配置组装 tracekit 的全部运行时组件。
//
// Properties 对应配置文件中 observability 节点下的键（kebab-case）：
//
//	observability:
//	  service-name: order-service
//	  tracing:
//	    enabled: true
//	    sampling-ratio: 0.25
//	    exporter: otlp-grpc
//	    endpoint: otel-collector:4317
//	    boundaries:
//	      consumer: false
//	  logging:
//	    level: info
//	    format: json
//	    include-headers: true
//	    header-filter: user-agent,x-tenant-id
//
// Setup 依次构建日志、导出器、Tracer 与关联策略，并默认注册为全局实例。
// Runtime.Apply 热更新采样率、边界开关与日志级别，其余键需要重启才生效。
package xsetup
