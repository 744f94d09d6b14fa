package proposals

import (
	"context"
	"encoding/json"
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
)

type mockEnqueuer struct {
	sent []EmailRequest
	err  error
}

func (m *mockEnqueuer) EnqueueProposalEmail(ctx context.Context, email EmailRequest) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func newTestRouter(t *testing.T, repo *mockRepository, enqueuer *mockEnqueuer) chi.Router {
	t.Helper()
	svc := newTestService(repo, newMockCompanyRepository(companies.Company{ID: 5, Name: "Aras Makina"}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, enqueuer)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func seedRecord(t *testing.T, repo *mockRepository, p Proposal) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	return id
}

func TestHandlerListAppliesQueryFilters(t *testing.T) {
	repo := newMockRepository()
	seedRecord(t, repo, Proposal{
		ProposalNo: "TF-001",
		Date:       time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Preparer:   "Yasin Tura",
		Product:    &ProductRef{Name: "Hidrolik Pres"},
	})
	seedRecord(t, repo, Proposal{
		ProposalNo: "TF-002",
		Date:       time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Preparer:   "Seda Yıldız",
		Product:    &ProductRef{Name: "Servo Motor"},
	})
	router := newTestRouter(t, repo, &mockEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals?q=servo", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Proposals []Proposal `json:"proposals"`
		Total     int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "TF-002", resp.Proposals[0].ProposalNo)
}

func TestHandlerListRejectsBadCriteria(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), &mockEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals?company_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals?status=Taslak", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateValidatesBody(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), &mockEnqueuer{})

	body := `{"version":"v1.0"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/proposals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerCreateAndGet(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), &mockEnqueuer{})

	body := `{
		"proposalNo": "TF-100",
		"date": "2024-06-01T00:00:00Z",
		"validityDays": 30,
		"companyId": "5",
		"product": {"name": "Hidrolik Pres"},
		"quantity": 2,
		"totalPrice": 100
	}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/proposals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(5), created.CompanyID.Int64(), "string company id must normalize")
	assert.Equal(t, StatusPending, created.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerUpdateStatus(t *testing.T) {
	repo := newMockRepository()
	id := seedRecord(t, repo, Proposal{ProposalNo: "TF-001"})
	router := newTestRouter(t, repo, &mockEnqueuer{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/proposals/1/status", strings.NewReader(`{"status":"Won"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusWon, got.Status)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/proposals/1/status", strings.NewReader(`{"status":"Kazanıldı"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerMailto(t *testing.T) {
	repo := newMockRepository()
	seedRecord(t, repo, Proposal{
		ProposalNo: "TF-001",
		Date:       time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Company: &CompanySnapshot{
			ContactPerson: "Murat Aras",
			Email:         "murat@arasmakina.com.tr",
		},
	})
	router := newTestRouter(t, repo, &mockEnqueuer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proposals/1/mailto", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "murat@arasmakina.com.tr", resp["to"])
	assert.Equal(t, "Teklif: TF-001 v1.0", resp["subject"])
	assert.True(t, strings.HasPrefix(resp["mailto"], "mailto:murat@arasmakina.com.tr?subject="))
}

func TestHandlerEmailQueuesDelivery(t *testing.T) {
	repo := newMockRepository()
	seedRecord(t, repo, Proposal{
		ProposalNo: "TF-001",
		Company:    &CompanySnapshot{Email: "murat@arasmakina.com.tr"},
	})
	seedRecord(t, repo, Proposal{ProposalNo: "TF-002"})
	enqueuer := &mockEnqueuer{}
	router := newTestRouter(t, repo, enqueuer)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/proposals/1/email", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, enqueuer.sent, 1)
	assert.Equal(t, "murat@arasmakina.com.tr", enqueuer.sent[0].To)

	// No company email: nothing to queue.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/proposals/2/email", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, enqueuer.sent, 1)
}
