package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"

	"github.com/af-corp/imagerouter/internal/auth"
	"github.com/af-corp/imagerouter/internal/classifier"
	"github.com/af-corp/imagerouter/internal/config"
	"github.com/af-corp/imagerouter/internal/filter"
	"github.com/af-corp/imagerouter/internal/httputil"
	"github.com/af-corp/imagerouter/internal/provider"
	"github.com/af-corp/imagerouter/internal/ratelimit"
	"github.com/af-corp/imagerouter/internal/router"
	"github.com/af-corp/imagerouter/internal/telemetry"
	"github.com/af-corp/imagerouter/internal/types"
)

const (
	routeIntent  = "/v1/intent"
	routeLexicon = "/v1/intent/lexicon"
	maxBodyBytes = 64 << 10
)

// AssistQuota is the per-school daily budget of assisted classifications.
type AssistQuota interface {
	Check(ctx context.Context, schoolID string, limit int64) ratelimit.QuotaResult
	Record(ctx context.Context, schoolID string) error
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	routers func() *Routers
	cfg     func() *config.Config
	guard   *filter.Chain
	quota   AssistQuota
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewHandler(routers func() *Routers, cfg func() *config.Config, guard *filter.Chain, quota AssistQuota, metrics *telemetry.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		routers: routers,
		cfg:     cfg,
		guard:   guard,
		quota:   quota,
		metrics: metrics,
		logger:  logger,
	}
}

// Intent handles POST /v1/intent.
func (h *Handler) Intent(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	start := time.Now()
	tag := requestLanguage(r)

	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.writeError(w, reqID, routeIntent, http.StatusUnauthorized, "INVALID_API_KEY", "Not authenticated")
		return
	}

	var req types.RouterRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, reqID, routeIntent, http.StatusBadRequest, codeInvalidJSON, msgInvalidJSON.in(tag))
		return
	}

	cfg := h.cfg()
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Prompt)); n > 0 {
		if n < cfg.Server.MinPromptLength {
			h.writeError(w, reqID, routeIntent, http.StatusBadRequest, codePromptTooShort, msgPromptTooShort.in(tag, cfg.Server.MinPromptLength))
			return
		}
		if n > cfg.Server.MaxPromptLength {
			h.writeError(w, reqID, routeIntent, http.StatusBadRequest, codePromptTooLong, msgPromptTooLong.in(tag, cfg.Server.MaxPromptLength))
			return
		}
	}

	rs := h.routers()
	rt, path := h.pick(r.Context(), rs, id, req)

	out, err := rt.RouteDetailed(r.Context(), req)
	if err != nil {
		h.writeRouteError(w, reqID, tag, err)
		return
	}

	if rt == rs.Assisted && out.Source == classifier.SourceAssisted && h.quota != nil {
		if err := h.quota.Record(r.Context(), id.SchoolID); err != nil {
			h.logger.Warn("assist quota record failed", "request_id", reqID, "error", err)
		}
	}

	duration := time.Since(start)
	h.logger.Info("intent routed",
		"request_id", reqID,
		"school_id", id.SchoolID,
		"intent", string(out.Result.Intent),
		"confidence", out.Result.Confidence,
		"source", string(out.Source),
		"overridden", out.Result.Overridden,
		"path", path,
		"prompt_len", utf8.RuneCountInString(req.Prompt),
		"duration_ms", duration.Milliseconds(),
	)
	if h.metrics != nil {
		h.metrics.RecordRoute(telemetry.RouteLabels{
			Intent:     string(out.Result.Intent),
			Source:     string(out.Source),
			Overridden: out.Result.Overridden,
			Confidence: out.Result.Confidence,
			DurationMs: float64(duration.Microseconds()) / 1000,
		})
		h.metrics.RecordRequest(routeIntent, http.StatusOK)
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, out.Result)
}

// pick chooses the router for one request and names the reason.
func (h *Handler) pick(ctx context.Context, rs *Routers, id *auth.Identity, req types.RouterRequest) (*router.Router, string) {
	switch {
	case rs.Assisted == nil:
		return rs.Rules, "rules_mode"
	case req.Override != nil:
		return rs.Rules, "override"
	case !id.AllowAssisted:
		return rs.Rules, "key"
	}

	if h.guard != nil {
		results, blocked := h.guard.Run(ctx, &filter.Request{
			Caller:       id.Caller,
			Prompt:       req.Prompt,
			HasOverride:  req.Override != nil,
			Provider:     rs.Provider,
			ProviderType: rs.ProviderType,
		})
		for _, fr := range results {
			if fr.Action == filter.ActionFlag && h.metrics != nil {
				h.metrics.RecordFilterAction(fr.FilterName, string(filter.ActionFlag))
			}
		}
		if blocked != nil {
			h.logger.Warn("assisted classification blocked by filter",
				"request_id", id.RequestID,
				"filter", blocked.FilterName,
				"detections", blocked.Detections,
				"score", blocked.Score,
				"school_id", id.SchoolID,
			)
			if h.metrics != nil {
				h.metrics.RecordFilterAction(blocked.FilterName, string(blocked.Action))
			}
			return rs.Rules, "filter:" + blocked.FilterName
		}
	}

	if h.quota != nil {
		limit := int64(h.cfg().Limits.DefaultDailyAssisted)
		if id.DailyAssistedQuota != nil {
			limit = int64(*id.DailyAssistedQuota)
		}
		if q := h.quota.Check(ctx, id.SchoolID, limit); !q.Allowed {
			h.logger.Info("assist quota exhausted",
				"request_id", id.RequestID,
				"school_id", id.SchoolID,
				"used", q.Used,
				"limit", q.Limit,
			)
			if h.metrics != nil {
				h.metrics.RecordRateLimitHit("assist_quota")
			}
			return rs.Rules, "quota"
		}
	}

	return rs.Assisted, "assisted"
}

func (h *Handler) writeRouteError(w http.ResponseWriter, reqID string, tag language.Tag, err error) {
	var rerr *router.Error
	if errors.As(err, &rerr) {
		h.writeError(w, reqID, routeIntent, http.StatusBadRequest, string(rerr.Code), rerr.Message(tag))
		return
	}
	h.logger.Error("routing failed", "request_id", reqID, "error", err)
	h.writeError(w, reqID, routeIntent, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternal.in(tag))
}

func (h *Handler) writeError(w http.ResponseWriter, reqID, route string, status int, code, msg string) {
	if h.metrics != nil {
		h.metrics.RecordRequest(route, status)
	}
	httputil.WriteError(w, reqID, status, code, msg)
}

type lexiconResponse struct {
	Mode            string `json:"mode"`
	Source          string `json:"source"`
	PriorityPhrases int    `json:"priority_phrases"`
	CreateKeywords  int    `json:"create_keywords"`
	EditKeywords    int    `json:"edit_keywords"`
	Topics          int    `json:"topics"`
	Styles          int    `json:"styles"`
}

// Lexicon handles GET /v1/intent/lexicon.
func (h *Handler) Lexicon(w http.ResponseWriter, r *http.Request) {
	rs := h.routers()
	lex := rs.Lexicon
	if h.metrics != nil {
		h.metrics.RecordRequest(routeLexicon, http.StatusOK)
	}
	httputil.WriteJSON(w, w.Header().Get("X-Request-ID"), http.StatusOK, lexiconResponse{
		Mode:            rs.Mode,
		Source:          lex.Source,
		PriorityPhrases: len(lex.PriorityPhrases),
		CreateKeywords:  len(lex.CreateKeywords),
		EditKeywords:    len(lex.EditKeywords),
		Topics:          len(lex.Topics),
		Styles:          len(lex.Styles),
	})
}

// Health returns the handler for GET /imagerouter/v1/health.
func Health(version string, health *provider.HealthTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":  "healthy",
			"version": version,
		}
		if health != nil {
			if states := health.States(); len(states) > 0 {
				body["providers"] = states
			}
		}
		httputil.WriteJSON(w, "", http.StatusOK, body)
	}
}
