// Package xid 提供关联标识的生成。
//
// 三类标识：
//   - NewUUID：随机 UUID（v4），默认的 requestId
//   - ShortID：定长小写十六进制短标识，入站未携带 spanId 时使用
//   - Generator：基于 Sonyflake v2 的时间有序 int64 ID，可作为 requestId 来源
//
// Sonyflake 位布局为 39 位时间（10ms 单位）+ 8 位序列号 + 16 位机器 ID。
// 机器 ID 默认按 [DefaultMachineID] 的回退策略获取，多实例部署时建议
// 通过 XID_MACHINE_ID 环境变量显式分配。
//
//	id := xid.NewUUID()
//	short := xid.ShortID(8)
//	gen, err := xid.NewGenerator()
//	id, err := gen.NewWithRetry(ctx)
package xid
