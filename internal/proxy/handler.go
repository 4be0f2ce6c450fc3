package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vnmchuo/budget-gateway/internal/auth"
	"github.com/vnmchuo/budget-gateway/internal/failures"
	"github.com/vnmchuo/budget-gateway/internal/hooks"
	"github.com/vnmchuo/budget-gateway/internal/upstream"
	"github.com/vnmchuo/budget-gateway/pkg/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AnonymousUser is billed when neither the API key nor the request names a user.
const AnonymousUser = "anonymous"

type Handler struct {
	dispatcher *hooks.Dispatcher
	upstream   upstream.Completer
	failures   failures.Store
	limiter    *ratelimit.Limiter
	tenantID   string
	logger     *zap.Logger
	tracer     trace.Tracer
}

func NewHandler(dispatcher *hooks.Dispatcher, up upstream.Completer, store failures.Store, limiter *ratelimit.Limiter, tenantID string, logger *zap.Logger, tracer trace.Tracer) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		upstream:   up,
		failures:   store,
		limiter:    limiter,
		tenantID:   tenantID,
		logger:     logger.With(zap.String("component", "proxy")),
		tracer:     tracer,
	}
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if auth.GetTenantID(ctx) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	requestID := auth.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var req upstream.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Model == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "model is required"})
		return
	}

	userID := resolveUser(ctx, &req)

	ctx, span := h.tracer.Start(ctx, "proxy.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant_id", h.tenantID),
		attribute.String("user_id", userID),
		attribute.String("request_id", requestID),
		attribute.String("model", req.Model),
	)

	estimatedTokens := req.MaxTokens
	if estimatedTokens <= 0 {
		estimatedTokens = 1000
	}

	allowed, err := h.limiter.Allow(ctx, h.tenantID, userID, estimatedTokens)
	if err != nil {
		h.logger.Error("rate limiter failed", zap.String("request_id", requestID), zap.Error(err))
	}
	if err != nil || !allowed {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":       "rate limit exceeded",
			"retry_after": "60s",
		})
		return
	}

	call := hooks.CallContext{
		RequestID: requestID,
		UserID:    userID,
		TenantID:  h.tenantID,
		Model:     req.Model,
		CallType:  hooks.CallChatCompletion,
	}

	var response *upstream.Response
	err = h.dispatcher.Run(ctx, call, func(ctx context.Context) (*hooks.TokenUsage, error) {
		resp, err := h.upstream.Complete(ctx, &req)
		if err != nil {
			return nil, err
		}
		response = resp
		return &hooks.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}, nil
	})

	var exceeded *hooks.BudgetExceededError
	switch {
	case errors.As(err, &exceeded):
		span.SetAttributes(attribute.Bool("budget.exceeded", true))
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":            "budget_exceeded",
			"message":          exceeded.Error(),
			"remaining_budget": exceeded.Remaining,
		})
		return
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("model call failed",
			zap.String("request_id", requestID),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream model call failed"})
		return
	}

	respID := response.ID
	if respID == "" {
		respID = uuid.New().String()
	}
	finishReason := response.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     respID,
		"object": "chat.completion",
		"model":  response.Model,
		"choices": []interface{}{
			map[string]interface{}{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": response.Content,
				},
				"finish_reason": finishReason,
			},
		},
		"usage": response.Usage,
	})
}

func (h *Handler) HandleFailures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if auth.GetTenantID(ctx) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	// Parse query parameters
	now := time.Now()
	from := now.AddDate(0, 0, -30) // Default: last 30 days
	to := now

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'from' date format (use RFC3339)"})
			return
		}
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		var err error
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'to' date format (use RFC3339)"})
			return
		}
	}

	events, err := h.failures.ListByTenant(ctx, h.tenantID, from, to)
	if err != nil {
		h.logger.Error("list failures", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list failures"})
		return
	}

	total, err := h.failures.CountByTenant(ctx, h.tenantID, from, to)
	if err != nil {
		h.logger.Error("count failures", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to count failures"})
		return
	}

	if events == nil {
		events = []*failures.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tenant_id":      h.tenantID,
		"total_failures": total,
		"failures":       events,
		"from":           from,
		"to":             to,
	})
}

// resolveUser picks the billed user: the API key's user, then the request's
// user field, then AnonymousUser.
func resolveUser(ctx context.Context, req *upstream.Request) string {
	if id := auth.GetUserID(ctx); id != "" {
		return id
	}
	if req.User != "" {
		return req.User
	}
	return AnonymousUser
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
