package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/omnivault/omnivault/pkg/internal/storage/mq"
)

// -------------------------- 基于业务封装 events --------------------------

// publish 统一的发布入口；client 为 nil 时事件静默丢弃（MQ 未启用）.
func publish[T any](ctx context.Context, client *mq.Client, topic string, payload T, opts ...func(*EventHeader)) error {
	if client == nil {
		return nil
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return client.Publish(ctx, topic, msg)
}

// PublishFileStored 发布 ov.file.stored 事件.
// 文件字节写入后端并完成元数据落库后调用，通知下游流程（索引、审计等）.
func PublishFileStored(ctx context.Context, client *mq.Client, payload FileStoredPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, client, TopicFileStored, payload, opts...)
}

// PublishFileDeleted 发布 ov.file.deleted 事件.
func PublishFileDeleted(ctx context.Context, client *mq.Client, payload FileDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, client, TopicFileDeleted, payload, opts...)
}

// PublishFolderDeleted 发布 ov.folder.deleted 事件.
func PublishFolderDeleted(ctx context.Context, client *mq.Client, payload FolderDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, client, TopicFolderDeleted, payload, opts...)
}

// PublishStatsRefreshed 发布 ov.stats.refreshed 事件.
func PublishStatsRefreshed(ctx context.Context, client *mq.Client, payload StatsRefreshedPayload, opts ...func(*EventHeader)) error {
	return publish(ctx, client, TopicStatsRefreshed, payload, opts...)
}

// ParseFileStored 将 Watermill 消息解析为强类型 Envelope（FileStoredPayload）.
func ParseFileStored(msg *message.Message) (Message[FileStoredPayload], error) {
	return ParseWatermillMessage[FileStoredPayload](msg)
}

// ParseStatsRefreshed 将 Watermill 消息解析为强类型 Envelope（StatsRefreshedPayload）.
func ParseStatsRefreshed(msg *message.Message) (Message[StatsRefreshedPayload], error) {
	return ParseWatermillMessage[StatsRefreshedPayload](msg)
}
