package companies

import (
	"context"
	"fmt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Company, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListAll(ctx context.Context) ([]Company, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) Create(ctx context.Context, req UpsertCompanyRequest) (*Company, error) {
	id, err := s.repo.Create(ctx, req.toModel())
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertCompanyRequest) (*Company, error) {
	if err := s.repo.Update(ctx, id, req.toModel()); err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
