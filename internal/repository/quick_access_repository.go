package repository

import (
	"deptkb-go/internal/model"

	"gorm.io/gorm"
)

// QuickAccessRepository 定义了快捷链接与常见问题的数据访问接口。
type QuickAccessRepository interface {
	ListLinksForRole(role model.Role) ([]model.QuickAccessLink, error)
	CreateLink(link *model.QuickAccessLink) error
	DeleteLink(id uint) error
	ListQuestionsForRole(role model.Role) ([]model.PopularQuestion, error)
	CreateQuestion(q *model.PopularQuestion) error
	DeleteQuestion(id uint) error
	IncrementClickCount(id uint) error
}

type quickAccessRepository struct {
	db *gorm.DB
}

// NewQuickAccessRepository 创建一个新的 QuickAccessRepository 实例。
func NewQuickAccessRepository(db *gorm.DB) QuickAccessRepository {
	return &quickAccessRepository{db: db}
}

func (r *quickAccessRepository) ListLinksForRole(role model.Role) ([]model.QuickAccessLink, error) {
	var all []model.QuickAccessLink
	if err := r.db.Order("sort_order, id").Find(&all).Error; err != nil {
		return nil, err
	}
	var visible []model.QuickAccessLink
	for _, link := range all {
		if link.AccessLevels.Contains(role) {
			visible = append(visible, link)
		}
	}
	return visible, nil
}

func (r *quickAccessRepository) CreateLink(link *model.QuickAccessLink) error {
	return r.db.Create(link).Error
}

func (r *quickAccessRepository) DeleteLink(id uint) error {
	return r.db.Delete(&model.QuickAccessLink{}, id).Error
}

func (r *quickAccessRepository) ListQuestionsForRole(role model.Role) ([]model.PopularQuestion, error) {
	var all []model.PopularQuestion
	if err := r.db.Order("click_count DESC, id").Find(&all).Error; err != nil {
		return nil, err
	}
	var visible []model.PopularQuestion
	for _, q := range all {
		if q.AccessLevels.Contains(role) {
			visible = append(visible, q)
		}
	}
	return visible, nil
}

func (r *quickAccessRepository) CreateQuestion(q *model.PopularQuestion) error {
	return r.db.Create(q).Error
}

func (r *quickAccessRepository) DeleteQuestion(id uint) error {
	return r.db.Delete(&model.PopularQuestion{}, id).Error
}

func (r *quickAccessRepository) IncrementClickCount(id uint) error {
	return r.db.Model(&model.PopularQuestion{}).Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + 1")).Error
}
