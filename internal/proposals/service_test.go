package proposals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turyasin/Proposal-App-Live/internal/companies"
	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
)

// ============================================================================
// MOCK REPOSITORIES
// ============================================================================

type mockRepository struct {
	records map[int64]*Proposal
	nextID  int64
	order   []int64

	// Error injection
	listError error
	txError   error

	txCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		records: make(map[int64]*Proposal),
		nextID:  1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.txCalls++
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Proposal, error) {
	p, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) ListAll(ctx context.Context) ([]Proposal, error) {
	if m.listError != nil {
		return nil, m.listError
	}
	result := make([]Proposal, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.records[id])
	}
	return result, nil
}

func (m *mockRepository) Create(ctx context.Context, p Proposal) (int64, error) {
	p.ID = m.nextID
	m.nextID++
	p.Status = p.Status.OrDefault()
	m.records[p.ID] = &p
	m.order = append(m.order, p.ID)
	return p.ID, nil
}

func (m *mockRepository) Update(ctx context.Context, id int64, p Proposal) error {
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	p.ID = id
	m.records[id] = &p
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	p, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	for i, got := range m.order {
		if got == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

type mockCompanyRepository struct {
	companies map[int64]*companies.Company
}

func newMockCompanyRepository(list ...companies.Company) *mockCompanyRepository {
	m := &mockCompanyRepository{companies: make(map[int64]*companies.Company)}
	for i := range list {
		c := list[i]
		m.companies[c.ID] = &c
	}
	return m
}

func (m *mockCompanyRepository) Get(ctx context.Context, id int64) (*companies.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, companies.ErrNotFound
	}
	return c, nil
}

func (m *mockCompanyRepository) ListAll(ctx context.Context) ([]companies.Company, error) {
	result := make([]companies.Company, 0, len(m.companies))
	for _, c := range m.companies {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockCompanyRepository) Create(ctx context.Context, c companies.Company) (int64, error) {
	id := int64(len(m.companies) + 1)
	c.ID = id
	m.companies[id] = &c
	return id, nil
}

func (m *mockCompanyRepository) Update(ctx context.Context, id int64, c companies.Company) error {
	if _, ok := m.companies[id]; !ok {
		return companies.ErrNotFound
	}
	c.ID = id
	m.companies[id] = &c
	return nil
}

func (m *mockCompanyRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.companies[id]; !ok {
		return companies.ErrNotFound
	}
	delete(m.companies, id)
	return nil
}

func newTestService(repo *mockRepository, companyRepo *mockCompanyRepository) *Service {
	// Nil Redis client: the cache degrades to pass-through.
	return NewService(repo, companyRepo, NewCache(nil, time.Minute))
}

func validRequest() UpsertProposalRequest {
	return UpsertProposalRequest{
		ProposalNo:   "TF-100",
		Date:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ValidityDays: 30,
		Preparer:     "Yasin Tura",
		Product:      &ProductRef{Name: "Hidrolik Pres HP-200"},
		Quantity:     2,
		TotalPrice:   100,
	}
}

// ============================================================================
// TESTS
// ============================================================================

func TestServiceCreateDefaultsStatusToPending(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockCompanyRepository())

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "TF-100", created.ProposalNo)
}

func TestServiceCreateRejectsUnknownCompany(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockCompanyRepository())

	req := validRequest()
	req.CompanyID = 42
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCompany)
}

func TestServiceCreateAcceptsKnownCompany(t *testing.T) {
	companyRepo := newMockCompanyRepository(companies.Company{ID: 42, Name: "Aras Makina"})
	svc := newTestService(newMockRepository(), companyRepo)

	req := validRequest()
	req.CompanyID = 42
	created, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.CompanyID.Int64())
}

func TestServiceCreateRejectsInvalidStatus(t *testing.T) {
	svc := newTestService(newMockRepository(), newMockCompanyRepository())

	req := validRequest()
	req.Status = "Taslak"
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestServiceUpdateStatus(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMockCompanyRepository())

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), created.ID, StatusWon)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), created.ID, "Kazanıldı")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), 999, StatusLost)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceArchiveAppliesCriteria(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMockCompanyRepository())

	first := validRequest()
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	second := validRequest()
	second.ProposalNo = "TF-101"
	second.Preparer = "Seda Yıldız"
	second.Product = &ProductRef{Name: "Servo Motor SM-450"}
	_, err = svc.Create(context.Background(), second)
	require.NoError(t, err)

	all, err := svc.Archive(context.Background(), FilterCriteria{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.Archive(context.Background(), FilterCriteria{Query: "servo"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "TF-101", filtered[0].ProposalNo)

	preparers, err := svc.Preparers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Yasin Tura", "Seda Yıldız"}, preparers)
}

func TestServiceDelete(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMockCompanyRepository())

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID), ErrNotFound)
}

func TestDomainErrorsCarryPlatformSentinels(t *testing.T) {
	assert.ErrorIs(t, ErrNotFound, httpx.ErrNotFound)
	assert.ErrorIs(t, ErrInvalidStatus, httpx.ErrValidation)
	assert.ErrorIs(t, ErrUnknownCompany, httpx.ErrValidation)
	assert.ErrorIs(t, companies.ErrNotFound, httpx.ErrNotFound)
}

func TestServiceMutationsRunInTransaction(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMockCompanyRepository())

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.txCalls)

	_, err = svc.Update(context.Background(), created.ID, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.txCalls)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Equal(t, 3, repo.txCalls)
}

func TestServiceMutationsPropagateTxError(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, newMockCompanyRepository())

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	repo.txError = errors.New("connection reset")

	_, err = svc.Create(context.Background(), validRequest())
	assert.ErrorContains(t, err, "connection reset")

	_, err = svc.Update(context.Background(), created.ID, validRequest())
	assert.ErrorContains(t, err, "connection reset")

	assert.ErrorContains(t, svc.Delete(context.Background(), created.ID), "connection reset")
}
