package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/chartqna/internal/config"
	"github.com/yungbote/chartqna/internal/engine"
	"github.com/yungbote/chartqna/internal/engine/mock"
	"github.com/yungbote/chartqna/internal/engine/oaihttp"
	"github.com/yungbote/chartqna/internal/engine/openaisdk"
	"github.com/yungbote/chartqna/internal/pricing"
)

type Route struct {
	PublicModel   string
	UpstreamModel string
	Engine        engine.Engine

	// Rate is meaningful only when Priced is true.
	Rate   pricing.Rate
	Priced bool

	// NeedsCredential is false for offline engines.
	NeedsCredential bool
	APIKey          string
}

type Router struct {
	routes map[string]Route
}

func New(cfg *config.Config) (*Router, error) {
	routes := make([]Route, 0, len(cfg.Models))
	for _, m := range cfg.Models {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("model id required")
		}

		route := Route{
			PublicModel:   id,
			UpstreamModel: strings.TrimSpace(m.UpstreamModel),
			APIKey:        strings.TrimSpace(m.Engine.APIKey),
		}
		if route.UpstreamModel == "" {
			route.UpstreamModel = id
		}
		if m.Pricing != nil {
			route.Rate = pricing.PerMillion(m.Pricing.InputPerMillion, m.Pricing.OutputPerMillion)
			route.Priced = true
		}

		switch strings.ToLower(strings.TrimSpace(m.Engine.Type)) {
		case "mock":
			route.Engine = mock.New()
		case "openai_http", "oai_http":
			e, err := oaihttp.New(m.Engine)
			if err != nil {
				return nil, err
			}
			route.Engine = e
			route.NeedsCredential = true
		case "openai_sdk":
			e, err := openaisdk.New(m.Engine)
			if err != nil {
				return nil, err
			}
			route.Engine = e
			route.NeedsCredential = true
		default:
			return nil, fmt.Errorf("unsupported engine type %q for model %q", m.Engine.Type, id)
		}
		routes = append(routes, route)
	}
	return NewStatic(routes...)
}

// NewStatic builds a router from prebuilt routes.
func NewStatic(routes ...Route) (*Router, error) {
	r := &Router{routes: map[string]Route{}}
	for _, route := range routes {
		id := strings.TrimSpace(route.PublicModel)
		if id == "" {
			return nil, fmt.Errorf("model id required")
		}
		if _, exists := r.routes[id]; exists {
			return nil, fmt.Errorf("duplicate model id: %s", id)
		}
		if route.Engine == nil {
			return nil, fmt.Errorf("model %q has no engine", id)
		}
		if strings.TrimSpace(route.UpstreamModel) == "" {
			route.UpstreamModel = id
		}
		route.PublicModel = id
		r.routes[id] = route
	}
	return r, nil
}

func (r *Router) ListModels() []string {
	out := make([]string, 0, len(r.routes))
	for id := range r.routes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Router) RouteForModel(model string) (Route, bool) {
	route, ok := r.routes[strings.TrimSpace(model)]
	return route, ok
}

// Pricing returns the rate table of every priced route.
func (r *Router) Pricing() pricing.Table {
	t := pricing.Table{}
	for id, route := range r.routes {
		if route.Priced {
			t[id] = route.Rate
		}
	}
	return t
}
