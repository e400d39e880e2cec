package service

import (
	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
)

// PortalService 提供门户页的快捷链接与常见问题。
type PortalService interface {
	QuickLinks(role model.Role) ([]model.QuickAccessLink, error)
	CreateQuickLink(link *model.QuickAccessLink) error
	DeleteQuickLink(id uint) error
	PopularQuestions(role model.Role) ([]model.PopularQuestion, error)
	CreatePopularQuestion(q *model.PopularQuestion) error
	DeletePopularQuestion(id uint) error
	RecordQuestionClick(id uint) error
}

type portalService struct {
	repo repository.QuickAccessRepository
}

// NewPortalService 创建一个新的 PortalService 实例。
func NewPortalService(repo repository.QuickAccessRepository) PortalService {
	return &portalService{repo: repo}
}

func (s *portalService) QuickLinks(role model.Role) ([]model.QuickAccessLink, error) {
	return s.repo.ListLinksForRole(role)
}

func (s *portalService) CreateQuickLink(link *model.QuickAccessLink) error {
	return s.repo.CreateLink(link)
}

func (s *portalService) DeleteQuickLink(id uint) error {
	return s.repo.DeleteLink(id)
}

func (s *portalService) PopularQuestions(role model.Role) ([]model.PopularQuestion, error) {
	return s.repo.ListQuestionsForRole(role)
}

func (s *portalService) CreatePopularQuestion(q *model.PopularQuestion) error {
	return s.repo.CreateQuestion(q)
}

func (s *portalService) DeletePopularQuestion(id uint) error {
	return s.repo.DeleteQuestion(id)
}

func (s *portalService) RecordQuestionClick(id uint) error {
	return s.repo.IncrementClickCount(id)
}
