package service

import (
	"context"
	"encoding/json"

	"github.com/Sayyed-Ali/MediSys/internal/repository"
)

type AuditLogResponse struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	UserName     string          `json:"user_name"`
	Action       string          `json:"action"`
	EntityID     string          `json:"entity_id"`
	EntityName   string          `json:"entity_name"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	RawRowsCount int             `json:"raw_rows_count"`
	CreatedAt    string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs returns newest entries first, optionally filtered by action
func (s *auditService) GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		name := "System"
		userID := ""
		if l.User != nil {
			name = l.User.FirstName
			if l.User.LastName != "" {
				name += " " + l.User.LastName
			}
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:           l.ID.String(),
			UserID:       userID,
			UserName:     name,
			Action:       l.Action,
			EntityID:     l.EntityID,
			EntityName:   l.EntityName,
			Summary:      json.RawMessage(l.Summary),
			RawRowsCount: l.RawRowsCount,
			CreatedAt:    l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
