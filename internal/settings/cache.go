// Package settings 提供了管理端可变配置的进程内缓存。
package settings

import (
	"errors"
	"fmt"
	"sync"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
)

// 缓存键。工具权限按工具名拼接。
const (
	KeyActiveModel  = "active_model"
	KeySystemPrompt = "system_prompt"
	toolKeyPrefix   = "tool:"
)

// ToolKey 返回某个工具权限对应的缓存键。
func ToolKey(toolName string) string {
	return toolKeyPrefix + toolName
}

// ConfigCache 缓存激活模型、系统提示词与工具权限，避免每次问答都查库。
// 实例由启动代码注入到使用方，管理端写入后同步调用 Invalidate，
// 因此单实例部署下读到的值不会落后于已确认的写入。
type ConfigCache struct {
	repo repository.SettingsRepository

	mu      sync.RWMutex
	entries map[string]interface{}
}

// NewConfigCache 创建一个新的 ConfigCache 实例。
func NewConfigCache(repo repository.SettingsRepository) *ConfigCache {
	return &ConfigCache{
		repo:    repo,
		entries: make(map[string]interface{}),
	}
}

// ActiveModel 返回当前激活的模型配置，未命中缓存时从库加载。
func (c *ConfigCache) ActiveModel() (*model.ModelConfig, error) {
	if v, ok := c.get(KeyActiveModel); ok {
		return v.(*model.ModelConfig), nil
	}
	mc, err := c.repo.GetActiveModel()
	if err != nil {
		return nil, fmt.Errorf("加载激活模型配置失败: %w", err)
	}
	c.set(KeyActiveModel, mc)
	return mc, nil
}

// SystemPrompt 返回问答链路的系统提示词内容。
func (c *ConfigCache) SystemPrompt() (string, error) {
	if v, ok := c.get(KeySystemPrompt); ok {
		return v.(string), nil
	}
	prompt, err := c.repo.GetPromptByName(model.DefaultPromptName)
	if err != nil {
		return "", fmt.Errorf("加载系统提示词失败: %w", err)
	}
	c.set(KeySystemPrompt, prompt.Content)
	return prompt.Content, nil
}

// ToolPermission 返回某个工具的角色权限列表。库中无记录视为对所有角色开放，
// 管理员只需为要收紧的工具建立记录。
func (c *ConfigCache) ToolPermission(toolName string) (model.RoleList, bool, error) {
	key := ToolKey(toolName)
	if v, ok := c.get(key); ok {
		roles := v.(model.RoleList)
		return roles, roles != nil, nil
	}
	perm, err := c.repo.GetToolPermission(toolName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.set(key, model.RoleList(nil))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("加载工具权限失败: %w", err)
	}
	c.set(key, perm.AllowedRoles)
	return perm.AllowedRoles, true, nil
}

// Invalidate 同步失效单个缓存键。管理端写入确认后调用，
// 下一次读取会重新从库加载。
func (c *ConfigCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll 清空全部缓存项。
func (c *ConfigCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]interface{})
}

func (c *ConfigCache) get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *ConfigCache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}
