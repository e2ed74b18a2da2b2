// Package xconf 基于 koanf 的配置加载器。
//
// 支持从文件（按扩展名识别 YAML/JSON）或字节数据加载，
// 通过 Unmarshal 反序列化到带 koanf 标签的结构体。
// 反序列化只覆盖配置中出现的键，目标结构体预先填好默认值即可实现默认值分层：
//
//	props := xsetup.DefaultProperties()
//	if err := cfg.Unmarshal("observability", &props); err != nil { ... }
//
// # 并发
//
// Reload 先完整解析新文件，成功后原子替换；失败时保留旧配置。
// Client 返回当前 koanf 实例的快照，Reload 后旧实例仍可读但不再更新。
//
// # 监视
//
// Watcher 监视配置文件所在目录（兼容编辑器先写临时文件再 rename 的保存方式），
// 防抖后调用 Reload 并回调。Run 阻塞到 ctx 结束，适合作为 xrun 的一个服务。
package xconf
