package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workflow-governance/backend/internal/audit"
	"workflow-governance/backend/internal/auth"
	"workflow-governance/backend/internal/clock"
	"workflow-governance/backend/internal/draft"
	"workflow-governance/backend/internal/logging"
	"workflow-governance/backend/internal/recommend"
	"workflow-governance/backend/internal/repository"
	"workflow-governance/backend/internal/services"
	"workflow-governance/backend/internal/validation"
	"workflow-governance/backend/pkg/models"
)

const testUserHeader = "X-Test-User"

type testServer struct {
	e      *echo.Echo
	server *Server
	drafts *draft.Registry
	clock  *clock.Fake
}

// asHeaderUser stands in for auth.RequireAuth: the caller is taken from
// a test header, and a request without it carries no identity.
func asHeaderUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if user := c.Request().Header.Get(testUserHeader); user != "" {
			ctx := auth.WithIdentity(c.Request().Context(), models.Identity{UserID: user, DisplayName: strings.ToUpper(user)})
			c.SetRequest(c.Request().WithContext(ctx))
		}
		return next(c)
	}
}

func newTestServer(t *testing.T, store Pinger) testServer {
	t.Helper()
	mem := repository.NewMemoryStore()
	clk := clock.NewFake(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC))
	ledger := audit.NewLog(mem, clk)
	svc := services.NewGovernanceService(mem, audit.NewSyncRecorder(ledger, nil, nil), clk, logging.NewDiscard(),
		services.WithLedger(ledger))
	drafts := draft.NewRegistry(draft.NewMemoryKV(), draft.WithClock(clk))
	if store == nil {
		store = mem
	}
	catalog, err := recommend.DefaultCatalog()
	require.NoError(t, err)

	s := NewServer(svc, drafts, catalog, validation.Context{}, store, nil)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(nil)
	e.GET("/health", s.Health)
	RegisterHandlers(e.Group("/api/v1", asHeaderUser), s)
	return testServer{e: e, server: s, drafts: drafts, clock: clk}
}

func (ts testServer) do(t *testing.T, method, path, user string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func sampleWorkflow() models.Workflow {
	return models.Workflow{
		WorkflowContent: models.WorkflowContent{
			Name:    "Contract review",
			UseCase: "Review inbound vendor contracts",
			Tools: []models.Tool{
				{ID: "t1", Name: "Analyzer", Category: "legal", Pricing: models.Pricing{StartingPrice: "$100/month"}},
				{ID: "t2", Name: "Signer", Category: "legal", Pricing: models.Pricing{StartingPrice: "$20/month"}},
			},
			Collaboration: models.Collaboration{Permissions: models.PermissionView, AllowComments: true},
		},
	}
}

func (ts testServer) create(t *testing.T) models.Workflow {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/workflows", "alice", sampleWorkflow())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Workflow](t, rec)
}

func TestCreateAndGetWorkflow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/workflows", "alice", sampleWorkflow())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Workflow](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/v1/workflows/"+created.ID, rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "alice", created.Metadata.CreatedBy)
	assert.Equal(t, 132.0, created.TotalCost)

	rec = ts.do(t, http.MethodGet, "/api/v1/workflows/"+created.ID, "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Workflow](t, rec)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.AuditLog, 1)
	assert.Equal(t, models.AuditCreated, got.AuditLog[0].Action)
}

func TestCreateWorkflow_RequiresIdentity(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/workflows", "", sampleWorkflow())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
}

func TestCreateWorkflow_PublishBlockedByValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	w := sampleWorkflow()
	w.Name = ""
	w.Metadata.Status = models.StatusPublished

	rec := ts.do(t, http.MethodPost, "/api/v1/workflows", "alice", w)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get(echo.HeaderContentType))
	problem := decode[models.ProblemDetails](t, rec)
	assert.Equal(t, "Validation Failed", problem.Title)
	assert.Contains(t, problem.Errors, validation.ErrNameRequired)
	assert.Equal(t, "/api/v1/workflows", problem.Instance)
}

func TestCreateWorkflow_ClearsNamedDraft(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPut, "/api/v1/drafts/tab-1", "alice", sampleWorkflow())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/workflows", "alice", sampleWorkflow(), DraftClientHeader, "tab-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/drafts/tab-1", "alice", nil).Code)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/workflows/missing", "alice", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	problem := decode[models.ProblemDetails](t, rec)
	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.Equal(t, "Not Found", problem.Title)
}

func TestListWorkflows(t *testing.T) {
	ts := newTestServer(t, nil)
	first := ts.create(t)
	ts.clock.Advance(time.Minute)
	second := ts.create(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/workflows?limit=1", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]models.Workflow](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/v1/workflows?offset=1", "alice", nil)
	got = decode[[]models.Workflow](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, first.ID, got[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/v1/workflows?status=published", "alice", nil)
	assert.Empty(t, decode[[]models.Workflow](t, rec))
}

func TestListWorkflows_BadQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/workflows?limit=abc", "alice", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/v1/workflows?offset=-1", "alice", nil).Code)
}

func TestUpdateArchiveDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)

	w.Description = "now with a description"
	rec := ts.do(t, http.MethodPut, "/api/v1/workflows/"+w.ID, "bob", w)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Workflow](t, rec)
	assert.Equal(t, "now with a description", updated.Description)
	assert.Equal(t, models.AuditUpdated, updated.AuditLog[len(updated.AuditLog)-1].Action)

	rec = ts.do(t, http.MethodPost, "/api/v1/workflows/"+w.ID+"/archive", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusArchived, decode[models.Workflow](t, rec).Metadata.Status)

	rec = ts.do(t, http.MethodDelete, "/api/v1/workflows/"+w.ID, "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/v1/workflows/"+w.ID, "bob", nil).Code)

	// The ledger outlives the document.
	rec = ts.do(t, http.MethodGet, "/api/v1/workflows/"+w.ID+"/audit", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[[]models.AuditEntry](t, rec))
}

func TestApprovalFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)
	base := "/api/v1/workflows/" + w.ID + "/approval/"

	rec := ts.do(t, http.MethodPost, base+"approve", "bob", DecisionRequest{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"request", "alice", ApprovalRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"request", "alice", ApprovalRequest{Approvers: []string{"bob"}, Notes: "please"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ApprovalPending, decode[models.Workflow](t, rec).ApprovalWorkflow.Status)

	rec = ts.do(t, http.MethodPost, base+"request", "alice", ApprovalRequest{Approvers: []string{"bob"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"approve", "bob", DecisionRequest{Notes: "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[models.Workflow](t, rec)
	assert.Equal(t, models.StatusPublished, approved.Metadata.Status)
	assert.Equal(t, "bob", approved.Metadata.ApprovedBy)
}

func TestRejectWorkflow(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)
	base := "/api/v1/workflows/" + w.ID + "/approval/"
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, base+"request", "alice", ApprovalRequest{Approvers: []string{"bob"}}).Code)

	rec := ts.do(t, http.MethodPost, base+"reject", "bob", DecisionRequest{Notes: "needs work"})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Workflow](t, rec)
	assert.Equal(t, models.ApprovalRejected, got.ApprovalWorkflow.Status)
	assert.Equal(t, models.StatusDraft, got.Metadata.Status)
}

func TestVersions(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)
	base := "/api/v1/workflows/" + w.ID + "/versions"

	rec := ts.do(t, http.MethodPost, base, "alice", VersionRequest{Description: "baseline"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "1.0.1", decode[models.Workflow](t, rec).VersionControl.CurrentVersion)

	rec = ts.do(t, http.MethodGet, base, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	versions := decode[[]models.VersionSnapshot](t, rec)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.0.0", versions[0].Version)

	rec = ts.do(t, http.MethodPost, base+"/1.0.0/restore", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "1.0.2", decode[models.Workflow](t, rec).VersionControl.CurrentVersion)

	rec = ts.do(t, http.MethodPost, base+"/9.9.9/restore", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditTrail_Recent(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/v1/workflows/"+w.ID+"/share", "alice",
		ShareRequest{UserIDs: []string{"bob"}, Permissions: models.PermissionEdit}).Code)

	rec := ts.do(t, http.MethodGet, "/api/v1/workflows/"+w.ID+"/audit?recent=1", "alice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]models.AuditEntry](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditShared, entries[0].Action)
}

func TestListShares(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/v1/workflows/"+w.ID+"/share", "alice",
		ShareRequest{UserIDs: []string{"bob"}, Permissions: models.PermissionEdit}).Code)

	rec := ts.do(t, http.MethodGet, "/api/v1/workflows/"+w.ID+"/shares", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shares := decode[[]models.ShareRecord](t, rec)
	require.Len(t, shares, 1)
	assert.Equal(t, "bob", shares[0].UserID)
	assert.Equal(t, models.PermissionEdit, shares[0].Permissions)
}

func TestExportWorkflow(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/workflows/"+w.ID+"/export?format=CSV", "alice", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "workflow-"+w.ID+".csv")
	assert.Contains(t, rec.Body.String(), "Contract review")

	rec = ts.do(t, http.MethodGet, "/api/v1/workflows/"+w.ID+"/export?format=pdf", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComments(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.create(t)
	path := "/api/v1/workflows/" + w.ID + "/comments"

	rec := ts.do(t, http.MethodPost, path, "bob", CommentRequest{Content: "looks good"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	parent := decode[models.Comment](t, rec)

	rec = ts.do(t, http.MethodPost, path, "alice", CommentRequest{Content: "thanks", ParentID: parent.ID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, path, "alice", CommentRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode[[]models.Comment](t, rec)
	require.Len(t, comments, 2)
	assert.Equal(t, parent.ID, comments[1].ParentID)
}

func TestValidateAndRecommend(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/validate", "alice", models.Workflow{})
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[validation.Result](t, rec)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, validation.ErrToolsRequired)

	rec = ts.do(t, http.MethodPost, "/api/v1/recommendations", "alice", RecommendRequest{Text: "legal document review"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[recommend.Result](t, rec)
	require.NotNil(t, got.Primary)
	assert.Equal(t, "Legal Practice Bundle", got.Primary.Name)
	assert.Equal(t, "legal", got.Category)
}

func TestDrafts(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/api/v1/drafts/tab-1"

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, "alice", nil).Code)
	rec := ts.do(t, http.MethodGet, path+"/info", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[draft.Info](t, rec).Exists)

	w := sampleWorkflow()
	w.Metadata.Status = models.StatusReview
	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPut, path, "alice", w).Code)

	rec = ts.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Workflow](t, rec)
	assert.Equal(t, "Contract review", got.Name)
	assert.Equal(t, models.StatusDraft, got.Metadata.Status)

	rec = ts.do(t, http.MethodGet, path+"/info", "alice", nil)
	info := decode[draft.Info](t, rec)
	assert.True(t, info.Exists)
	assert.Equal(t, "just now", info.AgeDescription)
	assert.Equal(t, "Contract review", info.WorkflowName)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, path, "alice", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, "alice", nil).Code)
}

func TestDrafts_AutoSave(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/api/v1/drafts/tab-2"

	rec := ts.do(t, http.MethodPut, path+"?autosave=true", "alice", sampleWorkflow())
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, "alice", nil).Code)

	assert.Equal(t, 1, ts.drafts.Flush())
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, "alice", nil).Code)
}

func TestDrafts_ScopedToCaller(t *testing.T) {
	ts := newTestServer(t, nil)
	path := "/api/v1/drafts/tab-1"
	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPut, path, "alice", sampleWorkflow()).Code)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, path, "bob", nil).Code)
	rec := ts.do(t, http.MethodGet, path+"/info", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[draft.Info](t, rec).Exists)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, path, "bob", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, "alice", nil).Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/workflows", "bob", sampleWorkflow(), DraftClientHeader, "tab-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, path, "alice", nil).Code)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.HealthStatus](t, rec)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks["store"])

	ts = newTestServer(t, downPinger{})
	rec = ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[models.HealthStatus](t, rec).Status)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(nil)
	e.GET("/boom", func(echo.Context) error { return errors.New("pq: password authentication failed") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestSpecHandler(t *testing.T) {
	e := echo.New()
	e.GET("/openapi.yaml", SpecHandler("https://example.okta.com/oauth2/default"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.okta.com/oauth2/default/v1/authorize")
	assert.NotContains(t, rec.Body.String(), "{oktaIssuer}")
}
