package settings

import (
	"fmt"
	"sync"
	"testing"

	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSettingsRepo 用内存数据模拟 SettingsRepository，并统计加载次数。
type fakeSettingsRepo struct {
	mu          sync.Mutex
	activeModel *model.ModelConfig
	prompt      *model.SystemPrompt
	tools       map[string]*model.ToolPermission
	loadCount   int
	// wrapNotFound 为真时把未命中错误包一层再返回
	wrapNotFound bool
}

func (f *fakeSettingsRepo) notFound() error {
	if f.wrapNotFound {
		return fmt.Errorf("查询设置失败: %w", repository.ErrNotFound)
	}
	return repository.ErrNotFound
}

func (f *fakeSettingsRepo) GetPromptByName(name string) (*model.SystemPrompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCount++
	if f.prompt == nil || f.prompt.Name != name {
		return nil, f.notFound()
	}
	return f.prompt, nil
}

func (f *fakeSettingsRepo) SavePrompt(p *model.SystemPrompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = p
	return nil
}

func (f *fakeSettingsRepo) GetActiveModel() (*model.ModelConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCount++
	if f.activeModel == nil {
		return nil, f.notFound()
	}
	return f.activeModel, nil
}

func (f *fakeSettingsRepo) SetActiveModel(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activeModel = &model.ModelConfig{ModelName: name, IsActive: true}
	return nil
}

func (f *fakeSettingsRepo) ListModels() ([]model.ModelConfig, error) { return nil, nil }
func (f *fakeSettingsRepo) CreateModel(mc *model.ModelConfig) error  { return nil }

func (f *fakeSettingsRepo) GetToolPermission(toolName string) (*model.ToolPermission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCount++
	perm, ok := f.tools[toolName]
	if !ok {
		return nil, f.notFound()
	}
	return perm, nil
}

func (f *fakeSettingsRepo) SaveToolPermission(perm *model.ToolPermission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tools == nil {
		f.tools = make(map[string]*model.ToolPermission)
	}
	f.tools[perm.ToolName] = perm
	return nil
}

func (f *fakeSettingsRepo) ListToolPermissions() ([]model.ToolPermission, error) { return nil, nil }

func (f *fakeSettingsRepo) loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCount
}

func TestActiveModelCachedUntilInvalidate(t *testing.T) {
	repo := &fakeSettingsRepo{
		activeModel: &model.ModelConfig{ModelName: "qwen-plus", IsActive: true},
	}
	cache := NewConfigCache(repo)

	mc, err := cache.ActiveModel()
	require.NoError(t, err)
	assert.Equal(t, "qwen-plus", mc.ModelName)

	// 第二次读取应命中缓存，不再触发加载
	_, err = cache.ActiveModel()
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loads())

	// 切换激活模型并失效缓存后，读到的必须是新值
	require.NoError(t, repo.SetActiveModel("deepseek-chat"))
	cache.Invalidate(KeyActiveModel)

	mc, err = cache.ActiveModel()
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", mc.ModelName)
	assert.Equal(t, 2, repo.loads())
}

func TestSystemPromptInvalidate(t *testing.T) {
	repo := &fakeSettingsRepo{
		prompt: &model.SystemPrompt{Name: model.DefaultPromptName, Content: "旧提示词"},
	}
	cache := NewConfigCache(repo)

	content, err := cache.SystemPrompt()
	require.NoError(t, err)
	assert.Equal(t, "旧提示词", content)

	require.NoError(t, repo.SavePrompt(&model.SystemPrompt{
		Name: model.DefaultPromptName, Content: "新提示词",
	}))
	cache.Invalidate(KeySystemPrompt)

	content, err = cache.SystemPrompt()
	require.NoError(t, err)
	assert.Equal(t, "新提示词", content)
}

func TestToolPermissionMissingMeansOpen(t *testing.T) {
	repo := &fakeSettingsRepo{}
	cache := NewConfigCache(repo)

	roles, restricted, err := cache.ToolPermission("journal_lookup")
	require.NoError(t, err)
	assert.False(t, restricted)
	assert.Nil(t, roles)

	// 未命中结果同样会被缓存
	_, _, err = cache.ToolPermission("journal_lookup")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loads())

	// 建立权限记录并失效后应读到限制
	require.NoError(t, repo.SaveToolPermission(&model.ToolPermission{
		ToolName:     "journal_lookup",
		AllowedRoles: model.RoleList{model.RoleMember, model.RoleChairperson},
	}))
	cache.Invalidate(ToolKey("journal_lookup"))

	roles, restricted, err = cache.ToolPermission("journal_lookup")
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.True(t, roles.Contains(model.RoleMember))
	assert.False(t, roles.Contains(model.RoleStudent))
}

func TestToolPermissionWrappedNotFoundMeansOpen(t *testing.T) {
	// 仓储实现可能把未命中错误再包一层，语义不应因此改变
	repo := &fakeSettingsRepo{wrapNotFound: true}
	cache := NewConfigCache(repo)

	roles, restricted, err := cache.ToolPermission("journal_lookup")
	require.NoError(t, err)
	assert.False(t, restricted)
	assert.Nil(t, roles)
}

func TestConfigCacheConcurrentAccess(t *testing.T) {
	repo := &fakeSettingsRepo{
		activeModel: &model.ModelConfig{ModelName: "qwen-plus", IsActive: true},
		prompt:      &model.SystemPrompt{Name: model.DefaultPromptName, Content: "提示词"},
	}
	cache := NewConfigCache(repo)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if n%4 == 0 {
					cache.Invalidate(KeyActiveModel)
				}
				if _, err := cache.ActiveModel(); err != nil {
					t.Error(err)
					return
				}
				if _, err := cache.SystemPrompt(); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
