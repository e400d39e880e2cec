// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"deptkb-go/internal/config"
	"deptkb-go/pkg/database"
	"deptkb-go/pkg/log"
	"deptkb-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// 任务类型标识，一个主题承载入库与清理两类任务。
const (
	KindProcess = "process"
	KindPurge   = "purge"
)

// envelope 是写入 Kafka 的统一消息结构。
type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// TaskProcessor defines the interface for any service that can process ingestion tasks.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	ProcessDocument(ctx context.Context, task tasks.DocumentProcessingTask) error
	PurgeSource(ctx context.Context, task tasks.VectorPurgeTask) error
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceDocumentTask 发送一个文档入库任务到 Kafka。
func ProduceDocumentTask(task tasks.DocumentProcessingTask) error {
	return produce(KindProcess, task)
}

// ProducePurgeTask 发送一个向量清理任务到 Kafka。软删除路径只负责投递，
// 真正的删除由消费者异步完成。
func ProducePurgeTask(task tasks.VectorPurgeTask) error {
	return produce(KindPurge, task)
}

func produce(kind string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := envelope{Kind: kind, Payload: payloadBytes}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return producer.WriteMessages(context.Background(), kafka.Message{Value: envBytes})
}

// StartConsumer 启动一个 Kafka 消费者来处理入库与清理任务。
func StartConsumer(cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  "deptkb-go-consumer",
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		var env envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		taskKey, procErr := dispatch(context.Background(), processor, env)
		if procErr != nil {
			log.Errorf("处理任务失败: key=%s, Error: %v", taskKey, procErr)
			// 使用 Redis 计数失败次数，达到阈值后提交 offset 终止重试
			attemptsKey := fmt.Sprintf("kafka:attempts:%s", taskKey)
			attempts, incErr := database.RDB.Incr(context.Background(), attemptsKey).Result()
			if incErr == nil {
				_ = database.RDB.Expire(context.Background(), attemptsKey, 24*time.Hour).Err()
			}
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			if attempts >= 3 {
				log.Errorf("任务多次失败(>=3)，提交 offset 终止重试: key=%s", taskKey)
				if err := r.CommitMessages(context.Background(), m); err != nil {
					log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
				}
			}
			// attempts < 3 时，不提交 offset 让 Kafka 自动重试
		} else {
			log.Infof("任务处理成功: key=%s", taskKey)
			_ = database.RDB.Del(context.Background(), fmt.Sprintf("kafka:attempts:%s", taskKey)).Err()
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}

	if err := r.Close(); err != nil {
		log.Fatalf("关闭 Kafka 消费者失败: %v", err)
	}
}

// dispatch 按消息类型分发任务，返回用于重试计数的任务键。
func dispatch(ctx context.Context, processor TaskProcessor, env envelope) (string, error) {
	switch env.Kind {
	case KindProcess:
		var task tasks.DocumentProcessingTask
		if err := json.Unmarshal(env.Payload, &task); err != nil {
			return "invalid", nil // 载荷损坏无重试价值，按成功提交
		}
		return fmt.Sprintf("doc:%d", task.DocumentID), processor.ProcessDocument(ctx, task)
	case KindPurge:
		var task tasks.VectorPurgeTask
		if err := json.Unmarshal(env.Payload, &task); err != nil {
			return "invalid", nil
		}
		return fmt.Sprintf("purge:%s:%s", task.SourceType, task.SourceID), processor.PurgeSource(ctx, task)
	default:
		log.Warnf("未知的任务类型: %s", env.Kind)
		return "unknown", nil
	}
}
