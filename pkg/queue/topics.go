// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：ov.<域>.<动作>，尽量稳定且向后兼容.
// 域：file(文件)、folder(文件夹)、stats(用量统计)
// 动作：stored(落库完成)、deleted(删除)、refreshed(刷新)

const (
	// 文件领域.
	TopicFileStored  = "ov.file.stored"  // 字节已写入后端且元数据落库
	TopicFileDeleted = "ov.file.deleted" // 远端对象与元数据均已删除

	// 文件夹领域.
	TopicFolderDeleted = "ov.folder.deleted" // 递归删除完成（含跳过明细）

	// 统计领域.
	TopicStatsRefreshed = "ov.stats.refreshed" // 用量汇总已重算
)
