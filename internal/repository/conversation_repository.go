package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deptkb-go/internal/model"
	"deptkb-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

const (
	// 每个会话保留的最近消息条数。
	conversationMaxMessages = 20
	// 会话历史的过期时间。
	conversationTTL = 7 * 24 * time.Hour
)

// ConversationRepository 定义了对话历史的数据访问接口。
// 历史存放在 Redis list 中，按时间顺序追加，只保留最近若干条。
type ConversationRepository interface {
	Append(ctx context.Context, sessionID string, msg model.ChatMessage) error
	GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Clear(ctx context.Context, sessionID string) error
}

type conversationRepository struct {
	rdb *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(rdb *redis.Client) ConversationRepository {
	return &conversationRepository{rdb: rdb}
}

func conversationKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}

func (r *conversationRepository) Append(ctx context.Context, sessionID string, msg model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化对话消息失败: %w", err)
	}
	key := conversationKey(sessionID)
	pipe := r.rdb.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -conversationMaxMessages, -1)
	pipe.Expire(ctx, key, conversationTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *conversationRepository) GetHistory(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	values, err := r.rdb.LRange(ctx, conversationKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]model.ChatMessage, 0, len(values))
	for _, v := range values {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			log.Warnf("对话历史消息解析失败, session: %s, error: %v", sessionID, err)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *conversationRepository) Clear(ctx context.Context, sessionID string) error {
	return r.rdb.Del(ctx, conversationKey(sessionID)).Err()
}
