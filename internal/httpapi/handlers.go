package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/chartqna/internal/platform/logger"
	"github.com/yungbote/chartqna/internal/qna"
	"github.com/yungbote/chartqna/internal/router"
)

type Handler struct {
	log          *logger.Logger
	router       *router.Router
	gen          *qna.Generator
	template     string
	defaultModel string
}

func (h *Handler) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// readyz reports ready once the default model passes preflight.
func (h *Handler) readyz(c *gin.Context) {
	if err := h.gen.Preflight(h.defaultModel, h.template); err != nil {
		h.log.Warn("not ready", "error", err)
		c.String(http.StatusServiceUnavailable, err.Error())
		return
	}
	c.String(http.StatusOK, "ok")
}

type modelInfo struct {
	ID               string  `json:"id"`
	Default          bool    `json:"default,omitempty"`
	Priced           bool    `json:"priced"`
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

func (h *Handler) listModels(c *gin.Context) {
	ids := h.router.ListModels()
	out := make([]modelInfo, 0, len(ids))
	for _, id := range ids {
		route, _ := h.router.RouteForModel(id)
		out = append(out, modelInfo{
			ID:               id,
			Default:          id == h.defaultModel,
			Priced:           route.Priced,
			InputPerMillion:  route.Rate.InputPerMillion(),
			OutputPerMillion: route.Rate.OutputPerMillion(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

type reasoningInfo struct {
	Type     qna.ReasoningType `json:"type"`
	Label    string            `json:"label"`
	Subtypes []qna.Subtype     `json:"subtypes"`
}

func (h *Handler) prompt(c *gin.Context) {
	types := []qna.ReasoningType{qna.Logical, qna.Arithmetic}
	reasoning := make([]reasoningInfo, 0, len(types))
	for _, t := range types {
		reasoning = append(reasoning, reasoningInfo{Type: t, Label: t.Label(), Subtypes: qna.Subtypes(t)})
	}
	c.JSON(http.StatusOK, gin.H{
		"template":        h.template,
		"placeholder":     qna.Placeholder,
		"example_data":    json.RawMessage(qna.ExampleChartData),
		"reasoning_types": reasoning,
	})
}

type generateRequest struct {
	Model          string          `json:"model"`
	PromptTemplate string          `json:"prompt_template"`
	ChartData      json.RawMessage `json:"chart_data"`
}

// chartText accepts chart data either as a JSON string holding the chart
// text or as the JSON value itself.
func (r generateRequest) chartText() (string, error) {
	raw := bytes.TrimSpace(r.ChartData)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("chart_data is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("chart_data: %w", err)
		}
		return s, nil
	}
	return string(raw), nil
}

// bindJSON decodes the body into dst and writes the error response when it
// cannot.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "request_too_large",
			fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	respondError(c, http.StatusBadRequest, "invalid_request", err)
	return false
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req) {
		return
	}
	chart, err := req.chartText()
	if err != nil {
		respondError(c, http.StatusBadRequest, errorCode(qna.KindInput), err)
		return
	}
	model := req.Model
	if model == "" {
		model = h.defaultModel
	}
	template := req.PromptTemplate
	if template == "" {
		template = h.template
	}

	if err := h.gen.Preflight(model, template); err != nil {
		kind := qna.KindOf(err)
		respondError(c, statusForKind(kind), errorCode(kind), err)
		return
	}

	res := h.gen.Generate(c.Request.Context(), qna.Request{Template: template, ChartData: chart, Model: model})
	if !res.OK() {
		c.JSON(statusForKind(res.Failure.Kind), res)
		return
	}
	if download, _ := strconv.ParseBool(c.Query("download")); download {
		writeExport(c, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type exportRequest struct {
	Items json.RawMessage `json:"items"`
}

func (h *Handler) export(c *gin.Context) {
	var req exportRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(bytes.TrimSpace(req.Items)) == 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", errors.New("items is required"))
		return
	}
	writeExport(c, qna.Result{Raw: req.Items})
}
