package funnel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turyasin/Proposal-App-Live/internal/companies"
	"github.com/turyasin/Proposal-App-Live/internal/observability"
	"github.com/turyasin/Proposal-App-Live/internal/proposals"
)

type staticProposalRepo struct {
	records []proposals.Proposal
}

func (r *staticProposalRepo) WithTx(ctx context.Context, fn func(context.Context, proposals.Repository) error) error {
	return fn(ctx, r)
}

func (r *staticProposalRepo) Get(ctx context.Context, id int64) (*proposals.Proposal, error) {
	for i := range r.records {
		if r.records[i].ID == id {
			return &r.records[i], nil
		}
	}
	return nil, proposals.ErrNotFound
}

func (r *staticProposalRepo) ListAll(ctx context.Context) ([]proposals.Proposal, error) {
	return r.records, nil
}

func (r *staticProposalRepo) Create(ctx context.Context, p proposals.Proposal) (int64, error) {
	p.ID = int64(len(r.records) + 1)
	r.records = append(r.records, p)
	return p.ID, nil
}

func (r *staticProposalRepo) Update(ctx context.Context, id int64, p proposals.Proposal) error {
	return nil
}

func (r *staticProposalRepo) UpdateStatus(ctx context.Context, id int64, status proposals.Status) error {
	return nil
}

func (r *staticProposalRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type staticCompanyRepo struct {
	list []companies.Company
}

func (r *staticCompanyRepo) Get(ctx context.Context, id int64) (*companies.Company, error) {
	for i := range r.list {
		if r.list[i].ID == id {
			return &r.list[i], nil
		}
	}
	return nil, companies.ErrNotFound
}

func (r *staticCompanyRepo) ListAll(ctx context.Context) ([]companies.Company, error) {
	return r.list, nil
}

func (r *staticCompanyRepo) Create(ctx context.Context, c companies.Company) (int64, error) {
	c.ID = int64(len(r.list) + 1)
	r.list = append(r.list, c)
	return c.ID, nil
}

func (r *staticCompanyRepo) Update(ctx context.Context, id int64, c companies.Company) error {
	return nil
}

func (r *staticCompanyRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type memorySnapshotRepo struct {
	snapshots []Snapshot
}

func (r *memorySnapshotRepo) Insert(ctx context.Context, s Snapshot) error {
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *memorySnapshotRepo) Latest(ctx context.Context) (*Snapshot, error) {
	if len(r.snapshots) == 0 {
		return nil, ErrNoSnapshot
	}
	return &r.snapshots[len(r.snapshots)-1], nil
}

func newTestFunnelService(records []proposals.Proposal, companyList []companies.Company, snapshots *memorySnapshotRepo) *Service {
	proposalRepo := &staticProposalRepo{records: records}
	companyRepo := &staticCompanyRepo{list: companyList}
	proposalSvc := proposals.NewService(proposalRepo, companyRepo, proposals.NewCache(nil, time.Minute))
	companySvc := companies.NewService(companyRepo)
	return NewService(proposalSvc, companySvc, snapshots)
}

func TestServiceExportFiltersBeforeRendering(t *testing.T) {
	svc := newTestFunnelService(
		[]proposals.Proposal{legacyProposal(), multiItemProposal()},
		testCompanies(),
		&memorySnapshotRepo{},
	)

	payload, rowCount, err := svc.Export(context.Background(), proposals.FilterCriteria{Query: "hidrolik"})
	require.NoError(t, err)
	assert.Equal(t, 1, rowCount)
	content := string(payload)
	assert.Contains(t, content, "Hidrolik Pres HP-200")
	assert.NotContains(t, content, "Servo Motor")
}

func TestServiceTakeSnapshotStoresFullExport(t *testing.T) {
	snapshots := &memorySnapshotRepo{}
	svc := newTestFunnelService(
		[]proposals.Proposal{legacyProposal(), multiItemProposal()},
		testCompanies(),
		snapshots,
	)

	takenAt := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	snapshot, err := svc.TakeSnapshot(context.Background(), takenAt)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.RowCount)
	assert.Len(t, strings.Split(string(snapshot.Payload), "\n"), snapshot.RowCount+1)
	assert.Equal(t, takenAt, snapshot.TakenAt)
	require.Len(t, snapshots.snapshots, 1)

	latest, err := svc.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, latest.ID)
}

func TestHandlerExportSetsDispositionAndRecordsMetric(t *testing.T) {
	svc := newTestFunnelService(
		[]proposals.Proposal{legacyProposal()},
		testCompanies(),
		&memorySnapshotRepo{},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, observability.NewMetrics())
	handler.now = func() time.Time { return time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	handler.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/funnel.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Teklif_Funnel_11-03-2024.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\uFEFF"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/funnel.csv?status=Taslak", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerLatestSnapshotNotFound(t *testing.T) {
	svc := newTestFunnelService(nil, nil, &memorySnapshotRepo{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, observability.NewMetrics())

	r := chi.NewRouter()
	handler.MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/funnel/snapshots/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
