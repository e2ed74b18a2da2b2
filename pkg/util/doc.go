// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 分布式唯一 ID（sonyflake）、UUID 与短 id
package util
