// Package gateway is the single entry point for searches: it validates requests,
// dispatches them to provider adapters, times them and classifies failures.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"lexgate/internal/logging"
	"lexgate/internal/metrics"
	"lexgate/internal/provider"
	"lexgate/internal/types"
)

// requestValidate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// SearchResponse is a successful search.
type SearchResponse struct {
	Source      types.Source         `json:"source"`
	Query       string               `json:"query"`
	Results     []types.ResultRecord `json:"results"`
	ResultCount int                  `json:"resultCount"`
	ElapsedMs   int64                `json:"elapsedMs"`
}

// Orchestrator dispatches searches to adapters.
type Orchestrator struct {
	registry *provider.Registry
}

// New creates an orchestrator over registry.
func New(registry *provider.Registry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// Sources lists the sources that can be searched.
func (o *Orchestrator) Sources() []types.Source {
	return o.registry.Sources()
}

type requestIDKey struct{}

// WithRequestID attaches a caller-chosen request ID used in audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID on ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// HandleSearch validates req, runs it against the selected provider and reports the
// wall-clock duration. Invalid requests are never dispatched. Errors are *types.Error.
func (o *Orchestrator) HandleSearch(ctx context.Context, req types.SearchRequest) (*SearchResponse, error) {
	start := time.Now()
	reqID := RequestID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	if err := validateRequest(req); err != nil {
		metrics.Searches.WithLabelValues("invalid", string(types.KindInvalidRequest)).Inc()
		return nil, err
	}

	src, ok := types.ParseSource(string(req.Source))
	var adapter provider.Adapter
	if ok {
		adapter, ok = o.registry.Get(src)
	}
	if !ok {
		metrics.Searches.WithLabelValues("unknown", string(types.KindUnsupportedSource)).Inc()
		return nil, types.NewError(types.KindUnsupportedSource, "gateway.dispatch",
			fmt.Sprintf("unsupported source %q", req.Source), nil)
	}

	logging.Audit(logging.AuditEvent{
		Type:      logging.AuditSearchStart,
		Source:    string(src),
		Username:  req.Credentials.Username,
		RequestID: reqID,
	})
	logging.Gateway("search %s on %s for %s (max %d)", reqID, src, req.Credentials.Username, req.MaxResults)

	records, err := adapter.Search(ctx, req.Query, req.Credentials, req.MaxResults)
	elapsed := time.Since(start)
	metrics.SearchDuration.WithLabelValues(string(src)).Observe(elapsed.Seconds())

	if err != nil {
		classified := classify(err)
		metrics.Searches.WithLabelValues(string(src), string(classified.Kind)).Inc()
		logging.GatewayWarn("search %s on %s failed after %v: %v", reqID, src, elapsed, err)
		logging.Audit(logging.AuditEvent{
			Type:      logging.AuditSearchError,
			Source:    string(src),
			Username:  req.Credentials.Username,
			RequestID: reqID,
			Duration:  elapsed,
			ErrorKind: string(classified.Kind),
			Message:   classified.Message,
		})
		return nil, classified
	}

	if records == nil {
		records = []types.ResultRecord{}
	}
	metrics.Searches.WithLabelValues(string(src), "ok").Inc()
	logging.Audit(logging.AuditEvent{
		Type:      logging.AuditSearchComplete,
		Source:    string(src),
		Username:  req.Credentials.Username,
		RequestID: reqID,
		Results:   len(records),
		Duration:  elapsed,
	})

	return &SearchResponse{
		Source:      src,
		Query:       req.Query,
		Results:     records,
		ResultCount: len(records),
		ElapsedMs:   elapsed.Milliseconds(),
	}, nil
}

// validateRequest reports every problem in one InvalidRequest error.
func validateRequest(req types.SearchRequest) error {
	var problems []string
	var verrs validator.ValidationErrors
	if err := requestValidate.Struct(req); errors.As(err, &verrs) {
		for _, fe := range verrs {
			problems = append(problems, describeField(fe))
		}
	} else if err != nil {
		problems = append(problems, err.Error())
	}
	if req.Query != "" && requestValidate.Var(req.Query, "notblank") != nil {
		problems = append(problems, "query is blank")
	}
	if req.Source != "" && requestValidate.Var(string(req.Source), "notblank") != nil {
		problems = append(problems, "source is blank")
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return types.NewError(types.KindInvalidRequest, "gateway.validate", strings.Join(problems, "; "), nil)
}

func describeField(fe validator.FieldError) string {
	name := fieldName(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "gte":
		return name + " must be at least " + fe.Param()
	default:
		return name + " is invalid"
	}
}

var fieldNames = map[string]string{
	"SearchRequest.Query":                "query",
	"SearchRequest.Source":               "source",
	"SearchRequest.Credentials":          "credentials",
	"SearchRequest.MaxResults":           "maxResults",
	"SearchRequest.Credentials.Username": "credentials.username",
	"SearchRequest.Credentials.Secret":   "credentials.secret",
}

func fieldName(ns string) string {
	if n, ok := fieldNames[ns]; ok {
		return n
	}
	return ns
}

// classify guarantees a *types.Error with a message safe to show callers.
func classify(err error) *types.Error {
	var te *types.Error
	if errors.As(err, &te) {
		kind := types.KindOf(err)
		if kind == te.Kind {
			return te
		}
		return types.NewError(kind, te.Op, te.Message, te.Err)
	}
	kind := types.KindOf(err)
	msg := "search failed"
	if kind == types.KindTimeout {
		msg = "search timed out"
	}
	return types.NewError(kind, "gateway.search", msg, err)
}
