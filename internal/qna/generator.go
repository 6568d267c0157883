package qna

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/chartqna/internal/engine"
	"github.com/yungbote/chartqna/internal/engine/oaihttp"
	"github.com/yungbote/chartqna/internal/platform/logger"
	"github.com/yungbote/chartqna/internal/pricing"
	"github.com/yungbote/chartqna/internal/router"
	"github.com/yungbote/chartqna/internal/sanitize"
)

// Sampling parameters sent with every request.
const (
	Temperature     = 0.3
	MaxOutputTokens = 2500
)

// WrapperKey is the object key the default prompt nests items under.
const WrapperKey = "qa_reasoning"

type Request struct {
	Template  string `json:"prompt_template"`
	ChartData string `json:"chart_data"`
	Model     string `json:"model"`
}

type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	// RawOutput is the unsanitized completion for malformed responses.
	RawOutput string `json:"raw_output,omitempty"`
}

// Result is either a success (Items or Raw, plus Usage) or a Failure.
type Result struct {
	ID       string
	Model    string
	Items    []QAItem
	Raw      json.RawMessage
	Usage    pricing.Usage
	Warnings []string
	Failure  *Failure
}

func (r Result) OK() bool { return r.Failure == nil }

// Grouped reports whether the response decoded into QA items.
func (r Result) Grouped() bool { return r.OK() && r.Raw == nil }

// Payload is the value exported for a successful result.
func (r Result) Payload() any {
	if r.Raw != nil {
		return r.Raw
	}
	if r.Items == nil {
		return []QAItem{}
	}
	return r.Items
}

func (r Result) MarshalJSON() ([]byte, error) {
	type envelope struct {
		ID       string         `json:"id"`
		Model    string         `json:"model"`
		Success  bool           `json:"success"`
		QnA      any            `json:"qna_data,omitempty"`
		Usage    *pricing.Usage `json:"usage,omitempty"`
		Warnings []string       `json:"warnings,omitempty"`
		Failure  *Failure       `json:"error,omitempty"`
	}
	env := envelope{ID: r.ID, Model: r.Model, Success: r.OK(), Warnings: r.Warnings, Failure: r.Failure}
	if r.OK() {
		usage := r.Usage
		env.Usage = &usage
		env.QnA = r.Payload()
	}
	return json.Marshal(env)
}

type Generator struct {
	router *router.Router
	log    *logger.Logger
	tracer trace.Tracer
}

func NewGenerator(r *router.Router, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Generator{
		router: r,
		log:    log,
		tracer: otel.Tracer("github.com/yungbote/chartqna/internal/qna"),
	}
}

// Preflight runs every check that does not need the network: template
// placeholder, known model, pricing and credential.
func (g *Generator) Preflight(model, template string) error {
	if err := CheckTemplate(template); err != nil {
		return err
	}
	_, err := g.resolve(model)
	return err
}

func (g *Generator) resolve(model string) (router.Route, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return router.Route{}, newError(KindConfiguration, "model", "model is required")
	}
	route, ok := g.router.RouteForModel(model)
	if !ok {
		return router.Route{}, newError(KindConfiguration, "model", "unknown model %q", model)
	}
	rate, err := g.router.Pricing().Lookup(model)
	if err != nil {
		return router.Route{}, &Error{Kind: KindConfiguration, Op: "pricing", Err: err}
	}
	route.Rate = rate
	if route.NeedsCredential && strings.TrimSpace(route.APIKey) == "" {
		return router.Route{}, newError(KindConfiguration, "credential", "no API key configured for model %q", model)
	}
	return route, nil
}

// Generate runs one generation. It never returns an error; every failure is
// reported through Result.Failure.
func (g *Generator) Generate(ctx context.Context, req Request) (res Result) {
	res = Result{ID: uuid.NewString(), Model: strings.TrimSpace(req.Model)}
	log := g.log.With("generation_id", res.ID, "model", res.Model)

	ctx, span := g.tracer.Start(ctx, "qna.generate", trace.WithAttributes(
		attribute.String("qna.generation_id", res.ID),
		attribute.String("llm.model", res.Model),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("qna generation panicked", "panic", rec)
			res.Failure = &Failure{Kind: KindEndpoint, Message: "unexpected internal error during generation"}
			res.Items, res.Raw, res.Usage = nil, nil, pricing.Usage{}
		}
		if res.Failure != nil {
			span.SetStatus(codes.Error, res.Failure.Message)
			span.SetAttributes(attribute.String("qna.failure_kind", string(res.Failure.Kind)))
		}
	}()

	prompt, err := RenderPrompt(req.Template, req.ChartData)
	if err != nil {
		return g.fail(log, res, err, "", nil)
	}
	route, err := g.resolve(res.Model)
	if err != nil {
		return g.fail(log, res, err, "", nil)
	}

	log.Debug("qna request", "upstream_model", route.UpstreamModel, "prompt_chars", len(prompt))
	completion, err := route.Engine.Complete(ctx, route.UpstreamModel, []engine.Message{
		{Role: "user", Content: prompt},
	}, engine.GenerateOptions{Temperature: Temperature, MaxTokens: MaxOutputTokens})
	if err != nil {
		return g.fail(log, res, endpointError(err), "", nil)
	}

	usage := pricing.Compute(pricing.TokenUsage{
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
	}, route.Rate)
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", usage.PromptTokens),
		attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		attribute.Int("llm.total_tokens", usage.TotalTokens),
		attribute.Float64("llm.total_cost_usd", usage.TotalCost),
	)

	cleaned, err := sanitize.Sanitize(completion.Text)
	if err != nil {
		return g.fail(log, res, &Error{Kind: KindMalformedResponse, Op: "sanitize", Err: err}, completion.Text, &usage)
	}

	items, raw, warnings, err := decodeItems(cleaned)
	if err != nil {
		return g.fail(log, res, &Error{Kind: KindMalformedResponse, Op: "decode", Err: err}, completion.Text, &usage)
	}

	res.Items, res.Raw, res.Usage, res.Warnings = items, raw, usage, warnings
	log.Info("qna generated",
		"items", len(items),
		"grouped", raw == nil,
		"warnings", len(warnings),
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_cost", usage.TotalCost,
	)
	return res
}

// fail records err on res. usage is set once a completion was received, so
// spend on rejected replies still shows in the log.
func (g *Generator) fail(log *logger.Logger, res Result, err error, rawOutput string, usage *pricing.Usage) Result {
	kind := KindOf(err)
	if kind == "" {
		kind = KindEndpoint
	}
	res.Failure = &Failure{Kind: kind, Message: failureMessage(kind, err), RawOutput: rawOutput}

	kv := []interface{}{"kind", kind, "error", err}
	var httpErr *oaihttp.HTTPError
	if errors.As(err, &httpErr) {
		kv = append(kv, "upstream_status", httpErr.StatusCode, "retryable", httpErr.Retryable())
	}
	if usage != nil {
		kv = append(kv,
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens,
			"total_cost", usage.TotalCost,
		)
	}
	log.Warn("qna generation failed", kv...)
	return res
}

func endpointError(err error) error {
	return &Error{Kind: KindEndpoint, Op: "complete", Err: err}
}

func failureMessage(kind Kind, err error) string {
	switch kind {
	case KindMalformedResponse:
		var e *Error
		if errors.As(err, &e) && e.Err != nil {
			return "model output invalid: " + e.Err.Error()
		}
		return "model output invalid"
	case KindEndpoint:
		var e *Error
		if errors.As(err, &e) && e.Err != nil {
			return "model endpoint call failed: " + e.Err.Error()
		}
		return "model endpoint call failed"
	default:
		return err.Error()
	}
}

// decodeItems interprets sanitized model output. A wrapper object is
// unwrapped; an array of objects becomes items; anything else is returned
// raw.
func decodeItems(cleaned string) ([]QAItem, json.RawMessage, []string, error) {
	var top json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &top); err != nil {
		return nil, nil, nil, err
	}

	value := top
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(top, &obj); err == nil && obj != nil {
		inner, ok := obj[WrapperKey]
		if !ok {
			return nil, compact(top), []string{fmt.Sprintf("response has no %q key; returned ungrouped", WrapperKey)}, nil
		}
		value = inner
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(value, &elems); err != nil || elems == nil {
		return nil, compact(value), []string{"response is not a list of QA items; returned ungrouped"}, nil
	}

	items := make([]QAItem, 0, len(elems))
	for i, el := range elems {
		var it QAItem
		if err := json.Unmarshal(el, &it); err != nil {
			return nil, compact(value), []string{fmt.Sprintf("item %d: %v; returned ungrouped", i+1, err)}, nil
		}
		items = append(items, it)
	}
	return items, nil, CheckBatch(items), nil
}

func compact(b json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return b
	}
	return buf.Bytes()
}
