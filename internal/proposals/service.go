package proposals

import (
	"context"
	"errors"
	"fmt"

	"github.com/turyasin/Proposal-App-Live/internal/companies"
	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
)

var (
	// ErrInvalidStatus is returned when a status outside the closed set is supplied.
	ErrInvalidStatus = fmt.Errorf("invalid proposal status: %w", httpx.ErrValidation)
	// ErrUnknownCompany is returned when a proposal references a company id
	// that does not exist.
	ErrUnknownCompany = fmt.Errorf("unknown company: %w", httpx.ErrValidation)
)

type Service struct {
	repo        Repository
	companyRepo companies.Repository
	cache       *Cache
}

func NewService(repo Repository, companyRepo companies.Repository, cache *Cache) *Service {
	return &Service{
		repo:        repo,
		companyRepo: companyRepo,
		cache:       cache,
	}
}

// Archive returns the filtered proposal collection, newest first. The full
// collection is read (through the cache) and filtered in memory; the archive
// of a single sales team is small and the filters run on every keystroke.
func (s *Service) Archive(ctx context.Context, criteria FilterCriteria) ([]Proposal, error) {
	records, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(records, criteria), nil
}

// Preparers returns the distinct preparer names across the whole archive.
func (s *Service) Preparers(ctx context.Context) ([]string, error) {
	records, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return DistinctPreparers(records), nil
}

func (s *Service) listAll(ctx context.Context) ([]Proposal, error) {
	key, err := s.cache.BuildKey(ctx, "proposals", "all")
	if err != nil {
		return nil, fmt.Errorf("build cache key: %w", err)
	}
	var records []Proposal
	err = s.cache.FetchJSON(ctx, key, &records, func(ctx context.Context) (interface{}, error) {
		return s.repo.ListAll(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return records, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Proposal, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req UpsertProposalRequest) (*Proposal, error) {
	p := req.toModel()
	if err := s.validate(ctx, &p); err != nil {
		return nil, err
	}

	var created *Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		id, err := tx.Create(ctx, p)
		if err != nil {
			return err
		}
		created, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create proposal: %w", err)
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertProposalRequest) (*Proposal, error) {
	p := req.toModel()
	if err := s.validate(ctx, &p); err != nil {
		return nil, err
	}

	var updated *Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.Update(ctx, id, p); err != nil {
			return err
		}
		var err error
		updated, err = tx.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update proposal: %w", err)
	}
	s.invalidate(ctx)
	return updated, nil
}

// UpdateStatus performs the single-field status mutation requested by the
// archive view.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Proposal, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update proposal status: %w", err)
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes a proposal irreversibly. Confirmation is the caller's
// responsibility.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) validate(ctx context.Context, p *Proposal) error {
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, p.Status)
	}
	if id := p.CompanyID.Int64(); id != 0 {
		if _, err := s.companyRepo.Get(ctx, id); err != nil {
			if errors.Is(err, companies.ErrNotFound) {
				return fmt.Errorf("%w: %d", ErrUnknownCompany, id)
			}
			return fmt.Errorf("verify company: %w", err)
		}
	}
	return nil
}

// Cache invalidation is best effort; a stale listing self-heals at TTL.
func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Bump(ctx)
}
