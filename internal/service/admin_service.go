package service

import (
	"context"
	"errors"

	"deptkb-go/internal/model"
	"deptkb-go/internal/pipeline"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/settings"
	"deptkb-go/pkg/log"
)

// AdminService 定义了管理端设置与对账操作的接口。
// 每个写操作在确认落库后同步失效对应的缓存键。
type AdminService interface {
	GetPrompt() (*model.SystemPrompt, error)
	UpdatePrompt(content string, updatedBy uint) error
	ListModels() ([]model.ModelConfig, error)
	CreateModel(mc *model.ModelConfig) error
	SetActiveModel(modelName string) error
	ListToolPermissions() ([]model.ToolPermission, error)
	SetToolPermission(toolName string, roles model.RoleList) error
	FindOrphans(ctx context.Context) ([]pipeline.Orphan, error)
	PurgeOrphans(ctx context.Context) (int, error)
}

type adminService struct {
	repo       repository.SettingsRepository
	cache      *settings.ConfigCache
	reconciler *pipeline.Reconciler
}

// NewAdminService 创建一个新的 AdminService 实例。
func NewAdminService(repo repository.SettingsRepository, cache *settings.ConfigCache, reconciler *pipeline.Reconciler) AdminService {
	return &adminService{repo: repo, cache: cache, reconciler: reconciler}
}

func (s *adminService) GetPrompt() (*model.SystemPrompt, error) {
	return s.repo.GetPromptByName(model.DefaultPromptName)
}

func (s *adminService) UpdatePrompt(content string, updatedBy uint) error {
	prompt, err := s.repo.GetPromptByName(model.DefaultPromptName)
	if err != nil {
		return err
	}
	prompt.Content = content
	prompt.UpdatedBy = updatedBy
	if err := s.repo.SavePrompt(prompt); err != nil {
		return err
	}
	s.cache.Invalidate(settings.KeySystemPrompt)
	log.Infof("[Admin] 系统提示词已更新并失效缓存, by: %d", updatedBy)
	return nil
}

func (s *adminService) ListModels() ([]model.ModelConfig, error) {
	return s.repo.ListModels()
}

func (s *adminService) CreateModel(mc *model.ModelConfig) error {
	return s.repo.CreateModel(mc)
}

func (s *adminService) SetActiveModel(modelName string) error {
	if err := s.repo.SetActiveModel(modelName); err != nil {
		return err
	}
	s.cache.Invalidate(settings.KeyActiveModel)
	log.Infof("[Admin] 激活模型已切换为 %s 并失效缓存", modelName)
	return nil
}

func (s *adminService) ListToolPermissions() ([]model.ToolPermission, error) {
	return s.repo.ListToolPermissions()
}

func (s *adminService) SetToolPermission(toolName string, roles model.RoleList) error {
	perm, err := s.repo.GetToolPermission(toolName)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		perm = &model.ToolPermission{ToolName: toolName}
	}
	perm.AllowedRoles = roles
	if err := s.repo.SaveToolPermission(perm); err != nil {
		return err
	}
	s.cache.Invalidate(settings.ToolKey(toolName))
	return nil
}

func (s *adminService) FindOrphans(ctx context.Context) ([]pipeline.Orphan, error) {
	return s.reconciler.FindOrphans(ctx)
}

func (s *adminService) PurgeOrphans(ctx context.Context) (int, error) {
	return s.reconciler.Purge(ctx)
}
