package pipeline

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SwineCoder101/spl-playground/internal/ledger"
)

func setupAPI(f *serviceFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(f.service, zap.NewNop())
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func validLaunchBody() map[string]any {
	return map[string]any{
		"name":     "Widget Token",
		"symbol":   "WDGT",
		"supply":   "1000",
		"decimals": 6,
		"venue":    "pool",
	}
}

func TestCreateLaunchReturnsResult(t *testing.T) {
	f := newServiceFixture()
	f.expectIssue()
	f.expectProvision()
	f.expectAllocate()
	f.expectSeed()
	router := setupAPI(f)

	w := postJSON(t, router, "/api/v1/launches", validLaunchBody())
	assert.Equal(t, http.StatusCreated, w.Code)

	var result Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, StatusLiquiditySeeded, result.Status)
	assert.Len(t, result.Steps, 4)
}

func TestCreateLaunchRejectsBadInput(t *testing.T) {
	f := newServiceFixture()
	router := setupAPI(f)

	body := validLaunchBody()
	delete(body, "symbol")
	w := postJSON(t, router, "/api/v1/launches", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = validLaunchBody()
	body["venue"] = "dark-pool"
	w = postJSON(t, router, "/api/v1/launches", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLaunchReportsPartialResultOnHalt(t *testing.T) {
	f := newServiceFixture()
	f.expectIssue()
	f.provisioner.On("EnsureAccount", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ledger.Errorf(ledger.KindUnreachable, "token.EnsureAccount", "node down"))
	router := setupAPI(f)

	w := postJSON(t, router, "/api/v1/launches", validLaunchBody())
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	var resp struct {
		Error  string `json:"error"`
		Result Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	// The confirmed mint must be visible so the operator can resume.
	assert.Equal(t, StepSucceeded, resp.Result.Steps[0].State)
	assert.Equal(t, "mint-1", resp.Result.Steps[0].Identifier)
}

func TestGetLaunch(t *testing.T) {
	f := newServiceFixture()
	f.expectIssue()
	f.expectProvision()
	f.expectAllocate()
	f.expectSeed()
	router := setupAPI(f)

	w := postJSON(t, router, "/api/v1/launches", validLaunchBody())
	require.Equal(t, http.StatusCreated, w.Code)
	var created Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/launches/"+created.RunID.String(), nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mint-1")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/launches/00000000-0000-0000-0000-000000000001", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResumeParkedLaunchConflicts(t *testing.T) {
	f := newServiceFixture()
	f.expectIssue()
	f.expectProvision()
	f.allocator.On("Allocate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ledger.Errorf(ledger.KindAmbiguous, "token.Allocate", "confirmation lost"))
	router := setupAPI(f)

	w := postJSON(t, router, "/api/v1/launches", validLaunchBody())
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Result Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = postJSON(t, router, "/api/v1/launches/"+resp.Result.RunID.String()+"/resume", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListLaunchesFiltersByStatus(t *testing.T) {
	f := newServiceFixture()
	f.expectIssue()
	f.expectProvision()
	f.expectAllocate()
	f.expectSeed()
	router := setupAPI(f)

	w := postJSON(t, router, "/api/v1/launches", validLaunchBody())
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/launches?status=liquidity_seeded", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var runs []LaunchRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/launches?status=failed", nil)
	router.ServeHTTP(w, req)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Empty(t, runs)
}
