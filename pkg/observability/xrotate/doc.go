// Package xrotate 为日志子系统提供按大小轮转的文件输出。
//
// 实现基于 gopkg.in/natefinch/lumberjack.v2。Rotator 满足 io.WriteCloser，
// 可直接作为 xlog 的输出目标；备份数量、保留天数、压缩均可配置。
package xrotate
