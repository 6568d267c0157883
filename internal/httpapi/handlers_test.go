package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/engine/mock"
	"github.com/yungbote/chartqna/internal/platform/logger"
	"github.com/yungbote/chartqna/internal/pricing"
	"github.com/yungbote/chartqna/internal/qna"
	"github.com/yungbote/chartqna/internal/router"
)

func testHandler(t *testing.T, eng *mock.Engine, authSecret string) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r, err := router.NewStatic(
		router.Route{PublicModel: "mock-1", Engine: eng, Rate: pricing.PerMillion(2, 8), Priced: true},
		router.Route{PublicModel: "remote", Engine: eng, Priced: true, NeedsCredential: true},
	)
	require.NoError(t, err)

	cfg := &config.Config{
		DefaultModel: "mock-1",
		HTTP:         config.HTTPConfig{MaxRequestBytes: 1 << 20, AuthSecret: authSecret},
	}
	log := logger.NewNop()
	return NewHandler(cfg, log, r, qna.NewGenerator(r, log), qna.DefaultTemplate)
}

func do(h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	ID       string            `json:"id"`
	Success  bool              `json:"success"`
	QnA      []json.RawMessage `json:"qna_data"`
	Usage    *pricing.Usage    `json:"usage"`
	Warnings []string          `json:"warnings"`
	Error    struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := testHandler(t, mock.New(), "")

	rr := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(headerRequestID))

	rr = do(h, http.MethodGet, "/readyz", "", headerRequestID, "abc")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc", rr.Header().Get(headerRequestID))
}

func TestModels(t *testing.T) {
	h := testHandler(t, mock.New(), "")

	rr := do(h, http.MethodGet, "/v1/models", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Models []modelInfo `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Models, 2)
	assert.Equal(t, "mock-1", out.Models[0].ID)
	assert.True(t, out.Models[0].Default)
	assert.InDelta(t, 8.0, out.Models[0].OutputPerMillion, 1e-9)
}

func TestPrompt(t *testing.T) {
	h := testHandler(t, mock.New(), "")

	rr := do(h, http.MethodGet, "/v1/prompt", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Template       string          `json:"template"`
		Placeholder    string          `json:"placeholder"`
		ReasoningTypes []reasoningInfo `json:"reasoning_types"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, qna.DefaultTemplate, out.Template)
	assert.Equal(t, "{chart_json}", out.Placeholder)

	require.Len(t, out.ReasoningTypes, 2)
	assert.Equal(t, qna.Logical, out.ReasoningTypes[0].Type)
	assert.Equal(t, "논리추론", out.ReasoningTypes[0].Label)
	assert.Len(t, out.ReasoningTypes[0].Subtypes, 5)
	arith := out.ReasoningTypes[1]
	assert.Equal(t, "연산추론", arith.Label)
	require.Len(t, arith.Subtypes, 8)
	assert.Equal(t, qna.Subtype{Type: qna.Arithmetic, Code: "decrease", Label: "감소량"}, arith.Subtypes[1])
}

func TestGenerate(t *testing.T) {
	eng := mock.New()
	h := testHandler(t, eng, "")

	rr := do(h, http.MethodPost, "/v1/qna/generate", `{"chart_data": `+qna.ExampleChartData+`}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	out := decode(t, rr)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.ID)
	assert.Len(t, out.QnA, 3)
	require.NotNil(t, out.Usage)
	assert.Positive(t, out.Usage.TotalCost)

	quoted, err := json.Marshal(qna.ExampleChartData)
	require.NoError(t, err)
	rr = do(h, http.MethodPost, "/v1/qna/generate", `{"model": "mock-1", "chart_data": `+string(quoted)+`}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, eng.Calls(), 2)
	assert.Equal(t, eng.Calls()[0].Messages, eng.Calls()[1].Messages)
}

func TestGenerate_Failures(t *testing.T) {
	eng := mock.New()
	h := testHandler(t, eng, "")

	rr := do(h, http.MethodPost, "/v1/qna/generate", `{"chart_data": "{not valid"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	out := decode(t, rr)
	assert.False(t, out.Success)
	assert.Equal(t, "input", out.Error.Kind)

	rr = do(h, http.MethodPost, "/v1/qna/generate", `{"chart_data": [], "prompt_template": "no slot"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "template_error", decode(t, rr).Error.Code)

	rr = do(h, http.MethodPost, "/v1/qna/generate", `{"chart_data": [], "model": "remote"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "configuration_error", decode(t, rr).Error.Code)

	rr = do(h, http.MethodPost, "/v1/qna/generate", `{"model": "mock-1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodPost, "/v1/qna/generate", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Empty(t, eng.Calls())

	eng.Reply = "I cannot produce JSON today."
	rr = do(h, http.MethodPost, "/v1/qna/generate", `{"chart_data": []}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "malformed_response", decode(t, rr).Error.Kind)
}

func TestBodyTooLarge(t *testing.T) {
	eng := mock.New()
	h := testHandler(t, eng, "")
	big := `{"chart_data": "` + strings.Repeat("x", 1<<20) + `"}`

	rr := do(h, http.MethodPost, "/v1/qna/generate", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, "request_too_large", decode(t, rr).Error.Code)

	rr = do(h, http.MethodPost, "/v1/qna/export", `{"items": ["`+strings.Repeat("x", 1<<20)+`"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, eng.Calls())
}

func TestGenerate_Download(t *testing.T) {
	h := testHandler(t, mock.New(), "")

	rr := do(h, http.MethodPost, "/v1/qna/generate?download=1", `{"chart_data": []}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, `attachment; filename="qna_result.json"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, qna.ExportContentType, rr.Header().Get("Content-Type"))

	var items []qna.QAItem
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	assert.Len(t, items, 3)
	assert.Contains(t, rr.Body.String(), "연산추론")
}

func TestExport(t *testing.T) {
	h := testHandler(t, mock.New(), "")

	rr := do(h, http.MethodPost, "/v1/qna/export", `{"items": [{"qa_id": 1, "question": "합계는?"}]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[\n  {\n    \"qa_id\": 1,\n    \"question\": \"합계는?\"\n  }\n]", rr.Body.String())

	rr = do(h, http.MethodPost, "/v1/qna/export", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuth(t *testing.T) {
	const secret = "test-secret"
	h := testHandler(t, mock.New(), secret)

	rr := do(h, http.MethodGet, "/v1/models", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	sign := func(key string, exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "analyst",
			ExpiresAt: jwt.NewNumericDate(exp),
		})
		s, err := tok.SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}

	rr = do(h, http.MethodGet, "/v1/models", "", "Authorization", "Bearer "+sign(secret, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, http.MethodGet, "/v1/models", "", "Authorization", "Bearer "+sign("other", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodGet, "/v1/models", "", "Authorization", "Bearer "+sign(secret, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
