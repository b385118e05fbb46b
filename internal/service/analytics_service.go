package service

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/Sayyed-Ali/MediSys/internal/upstream"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type MonthRequest struct {
	Month string `json:"month"`
}

// AnalyticsService proxies prediction requests to the analytics service
type AnalyticsService interface {
	Demand(ctx context.Context, req MonthRequest) (json.RawMessage, error)
	Risk(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error)
	Disease(ctx context.Context, req MonthRequest) (json.RawMessage, error)
	Metadata(ctx context.Context) json.RawMessage
}

type analyticsService struct {
	gateway AnalyticsGateway
}

func NewAnalyticsService(gateway AnalyticsGateway) AnalyticsService {
	return &analyticsService{gateway: gateway}
}

func (s *analyticsService) Demand(ctx context.Context, req MonthRequest) (json.RawMessage, error) {
	if req.Month == "" {
		return nil, invalid("Month parameter is required")
	}
	if !monthPattern.MatchString(req.Month) {
		return nil, invalid("month must be YYYY-MM")
	}
	return s.gateway.Post(ctx, upstream.PathPredictDemand, req)
}

func (s *analyticsService) Risk(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return s.gateway.Post(ctx, upstream.PathPredictRisk, payload)
}

// Disease forwards an optional month; the analytics side picks its own default
func (s *analyticsService) Disease(ctx context.Context, req MonthRequest) (json.RawMessage, error) {
	if req.Month != "" && !monthPattern.MatchString(req.Month) {
		return nil, invalid("month must be YYYY-MM")
	}
	return s.gateway.Post(ctx, upstream.PathPredictDisease, req)
}

func (s *analyticsService) Metadata(ctx context.Context) json.RawMessage {
	return s.gateway.Metadata(ctx)
}
