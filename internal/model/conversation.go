package model

import "time"

// AnswerSource 是回答中一条已解析的引用来源。
type AnswerSource struct {
	Title       string `json:"title"`
	SourceType  string `json:"sourceType"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// ChatMessage 代表存储在 Redis 中的单条对话消息。
// 问答对一经写入不再修改。
type ChatMessage struct {
	Role      string         `json:"role"` // "user" 或 "assistant"
	Content   string         `json:"content"`
	Sources   []AnswerSource `json:"sources,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
