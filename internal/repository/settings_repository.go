package repository

import (
	"errors"

	"deptkb-go/internal/model"

	"gorm.io/gorm"
)

// 懒创建 default_rag 记录时使用的初始提示词。
const defaultPromptContent = `你是系里的知识库助理。请仅依据提供的资料回答问题：
1. 回答必须有资料支撑，资料不足时明确说明"没有找到相关资料"，不要编造。
2. 引用某份文件时，使用格式 [文件说明](download:文件标题) 给出下载链接。
3. 回答使用与问题相同的语言。`

// SettingsRepository 定义了系统设置数据访问的接口。
type SettingsRepository interface {
	GetPromptByName(name string) (*model.SystemPrompt, error)
	SavePrompt(prompt *model.SystemPrompt) error
	GetActiveModel() (*model.ModelConfig, error)
	SetActiveModel(modelName string) error
	ListModels() ([]model.ModelConfig, error)
	CreateModel(mc *model.ModelConfig) error
	GetToolPermission(toolName string) (*model.ToolPermission, error)
	SaveToolPermission(perm *model.ToolPermission) error
	ListToolPermissions() ([]model.ToolPermission, error)
}

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository 创建一个新的 SettingsRepository 实例。
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetPromptByName 按名称读取提示词。default_rag 缺失时懒创建一条默认记录，
// 保证问答链路总能取到提示词。
func (r *settingsRepository) GetPromptByName(name string) (*model.SystemPrompt, error) {
	var prompt model.SystemPrompt
	err := r.db.Where("name = ?", name).First(&prompt).Error
	if err == nil {
		return &prompt, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if name != model.DefaultPromptName {
		return nil, ErrNotFound
	}
	prompt = model.SystemPrompt{
		Name:     model.DefaultPromptName,
		Content:  defaultPromptContent,
		IsActive: true,
	}
	if err := r.db.Create(&prompt).Error; err != nil {
		// 并发懒创建撞唯一索引时重读即可
		var again model.SystemPrompt
		if rerr := r.db.Where("name = ?", name).First(&again).Error; rerr == nil {
			return &again, nil
		}
		return nil, err
	}
	return &prompt, nil
}

func (r *settingsRepository) SavePrompt(prompt *model.SystemPrompt) error {
	return r.db.Save(prompt).Error
}

func (r *settingsRepository) GetActiveModel() (*model.ModelConfig, error) {
	var mc model.ModelConfig
	if err := r.db.Where("is_active = ?", true).First(&mc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &mc, nil
}

// SetActiveModel 在同一事务内先全部取消激活再激活目标，维持"恰有一条激活"的约束。
func (r *settingsRepository) SetActiveModel(modelName string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var target model.ModelConfig
		if err := tx.Where("model_name = ?", modelName).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&model.ModelConfig{}).Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&model.ModelConfig{}).Where("id = ?", target.ID).
			Update("is_active", true).Error
	})
}

func (r *settingsRepository) ListModels() ([]model.ModelConfig, error) {
	var models []model.ModelConfig
	err := r.db.Order("id").Find(&models).Error
	return models, err
}

func (r *settingsRepository) CreateModel(mc *model.ModelConfig) error {
	return r.db.Create(mc).Error
}

func (r *settingsRepository) GetToolPermission(toolName string) (*model.ToolPermission, error) {
	var perm model.ToolPermission
	if err := r.db.Where("tool_name = ?", toolName).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func (r *settingsRepository) SaveToolPermission(perm *model.ToolPermission) error {
	return r.db.Save(perm).Error
}

func (r *settingsRepository) ListToolPermissions() ([]model.ToolPermission, error) {
	var perms []model.ToolPermission
	err := r.db.Order("tool_name").Find(&perms).Error
	return perms, err
}
