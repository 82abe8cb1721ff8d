package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/middleware"

	caseprofileroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/caseprofile"
	dnaroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/dna"
	evidenceroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/evidence"
	reviewroutes "github.com/PresidentAnderson/locate-connect-sub007/pkg/routes/review"

	"github.com/PresidentAnderson/locate-connect-sub007/pkg/models"
)

// TestAPIHelpers contains helper functions for API testing
type TestAPIHelpers struct {
	t        *testing.T
	e        *echo.Echo
	tenantID string
}

func NewTestAPIHelpers(t *testing.T) *TestAPIHelpers {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}))

	api := e.Group("/api/v1")
	caseprofileroutes.Register(api)
	reviewroutes.Register(api)
	evidenceroutes.Register(api)
	dnaroutes.Register(api)

	return &TestAPIHelpers{
		t:        t,
		e:        e,
		tenantID: "test-tenant",
	}
}

func (h *TestAPIHelpers) MakeRequest(method, path string, body any) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(h.t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", h.tenantID)

	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

// Request validation runs before dependency resolution, so malformed input
// is rejectable without a live container behind the handlers.
func TestCaseProfileAPI_Validation(t *testing.T) {
	h := NewTestAPIHelpers(t)

	t.Run("Create_MissingCaseID", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/cold-cases", map[string]any{
			"facts": map[string]any{"person_name": "Dana Voss"},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Create_MalformedBody", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cold-cases", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MarkCold_BadReason", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/cold-cases/abc/mark-cold", models.MarkColdRequest{
			Reason: models.ClassificationReason("auto_classified"),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("ApproveRevival_MissingApprover", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/cold-cases/abc/approve-revival", map[string]any{
			"note": "no approver named",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("List_BadMinScore", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodGet, "/api/v1/cold-cases?min_score=not-a-number", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReviewAPI_Validation(t *testing.T) {
	h := NewTestAPIHelpers(t)

	t.Run("Create_BadReviewType", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/cold-cases/abc/reviews", map[string]any{
			"review_type": "quarterly",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Complete_MissingSummary", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/reviews/abc/complete", map[string]any{})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestEvidenceAPI_Validation(t *testing.T) {
	h := NewTestAPIHelpers(t)

	t.Run("Create_MissingDescription", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/cold-cases/abc/evidence", models.CreateEvidenceRequest{
			Significance: models.SignificanceHigh,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Create_BadSignificance", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPost, "/api/v1/cold-cases/abc/evidence", map[string]any{
			"description":  "partial plate from a traffic camera",
			"significance": "urgent",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Verification_BadOutcome", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPut, "/api/v1/evidence/abc/verification", map[string]any{
			"verification": "maybe",
			"verified_by":  "det. marsh",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDNAAPI_Validation(t *testing.T) {
	h := NewTestAPIHelpers(t)

	t.Run("UpdateStatus_BadStatus", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPut, "/api/v1/dna-submissions/abc/status", map[string]any{
			"status": "lost_in_mail",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("UpdateStatus_MissingStatus", func(t *testing.T) {
		rec := h.MakeRequest(http.MethodPut, "/api/v1/dna-submissions/abc/status", map[string]any{
			"notes": "status omitted",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDNATransitions(t *testing.T) {
	cases := []struct {
		from, to models.DNAStatus
		allowed  bool
	}{
		{models.DNANotSubmitted, models.DNAPendingSubmission, true},
		{models.DNAPendingSubmission, models.DNASubmitted, true},
		{models.DNASubmitted, models.DNAMatchFound, true},
		{models.DNASubmitted, models.DNANoMatch, true},
		{models.DNANoMatch, models.DNAResubmissionPending, true},
		{models.DNAResubmissionPending, models.DNAResubmitted, true},
		{models.DNAResubmitted, models.DNAMatchFound, true},
		{models.DNANotSubmitted, models.DNAMatchFound, false},
		{models.DNASubmitted, models.DNAPendingSubmission, false},
		{models.DNAMatchFound, models.DNASubmitted, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestAPIErrorResponses(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		response := map[string]any{
			"error":   "profile not found",
			"code":    http.StatusNotFound,
			"details": "profile 'abc-123' does not exist",
		}

		data, err := json.Marshal(response)
		require.NoError(t, err)

		var parsed map[string]any
		err = json.Unmarshal(data, &parsed)
		require.NoError(t, err)

		code := int(parsed["code"].(float64))
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("Conflict", func(t *testing.T) {
		response := map[string]any{
			"error": "case is already cold",
			"code":  http.StatusConflict,
		}

		data, err := json.Marshal(response)
		require.NoError(t, err)

		var parsed map[string]any
		err = json.Unmarshal(data, &parsed)
		require.NoError(t, err)

		code := int(parsed["code"].(float64))
		assert.Equal(t, http.StatusConflict, code)
	})
}

func BenchmarkHTTPRequest(b *testing.B) {
	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
	}
}
