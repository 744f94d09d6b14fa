package funnel

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turyasin/Proposal-App-Live/internal/companies"
	"github.com/turyasin/Proposal-App-Live/internal/proposals"
)

type Service struct {
	proposals *proposals.Service
	companies *companies.Service
	repo      SnapshotRepository
}

func NewService(proposalSvc *proposals.Service, companySvc *companies.Service, repo SnapshotRepository) *Service {
	return &Service{
		proposals: proposalSvc,
		companies: companySvc,
		repo:      repo,
	}
}

// Export renders the funnel CSV for the records matching criteria. The
// proposal archive and the company collection are independent reads, so they
// are fetched concurrently.
func (s *Service) Export(ctx context.Context, criteria proposals.FilterCriteria) ([]byte, int, error) {
	records, companyList, err := s.fetch(ctx, criteria)
	if err != nil {
		return nil, 0, err
	}

	rows := Rows(records, companyList)
	return Render(rows), len(rows), nil
}

// TakeSnapshot renders the full, unfiltered funnel and stores it for
// pipeline history.
func (s *Service) TakeSnapshot(ctx context.Context, takenAt time.Time) (*Snapshot, error) {
	records, companyList, err := s.fetch(ctx, proposals.FilterCriteria{})
	if err != nil {
		return nil, err
	}

	rows := Rows(records, companyList)
	snapshot := Snapshot{
		ID:       uuid.New(),
		TakenAt:  takenAt.UTC(),
		RowCount: len(rows),
		Payload:  Render(rows),
	}
	if err := s.repo.Insert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("store funnel snapshot: %w", err)
	}
	return &snapshot, nil
}

// LatestSnapshot returns the most recent stored snapshot.
func (s *Service) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	return s.repo.Latest(ctx)
}

func (s *Service) fetch(ctx context.Context, criteria proposals.FilterCriteria) ([]proposals.Proposal, []companies.Company, error) {
	var (
		records     []proposals.Proposal
		companyList []companies.Company
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.proposals.Archive(ctx, criteria)
		return err
	})
	g.Go(func() error {
		var err error
		companyList, err = s.companies.ListAll(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetch funnel inputs: %w", err)
	}
	return records, companyList, nil
}
