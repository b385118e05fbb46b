package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/repository"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"

	"github.com/google/uuid"
)

type CreateAdmissionRequest struct {
	PatientName string     `json:"patientName" binding:"required"`
	Age         *int       `json:"age" binding:"omitempty,min=0,max=150"`
	Gender      string     `json:"gender"`
	RoomType    string     `json:"roomType" binding:"required"`
	Doctor      string     `json:"doctor"`
	AdmittedAt  *time.Time `json:"admittedAt"`
}

type ChangeRoomRequest struct {
	RoomType string `json:"roomType" binding:"required"`
}

type AdmissionService interface {
	Admit(ctx context.Context, req CreateAdmissionRequest) (*model.Admission, error)
	ListAdmissions(ctx context.Context, status string, page, limit int) ([]model.Admission, int64, error)
	ChangeRoom(ctx context.Context, id string, req ChangeRoomRequest) (*model.Admission, error)
	Discharge(ctx context.Context, id string) (*model.Admission, error)
}

type admissionService struct {
	repo      repository.AdmissionRepository
	analytics AnalyticsNotifier
	now       func() time.Time
}

func NewAdmissionService(repo repository.AdmissionRepository, analytics AnalyticsNotifier) AdmissionService {
	return &admissionService{repo: repo, analytics: analytics, now: time.Now}
}

func (s *admissionService) Admit(ctx context.Context, req CreateAdmissionRequest) (*model.Admission, error) {
	name := strings.TrimSpace(req.PatientName)
	if name == "" {
		return nil, invalid("patientName is required")
	}
	if !model.IsValidRoomType(req.RoomType) {
		return nil, invalid("Invalid roomType")
	}

	admission := &model.Admission{
		PatientName: name,
		Age:         req.Age,
		Gender:      req.Gender,
		RoomType:    req.RoomType,
		Doctor:      req.Doctor,
		AdmittedAt:  s.now().UTC(),
		Status:      model.AdmissionAdmitted,
	}
	if req.AdmittedAt != nil && !req.AdmittedAt.IsZero() {
		admission.AdmittedAt = req.AdmittedAt.UTC()
	}

	if err := s.repo.Create(ctx, admission); err != nil {
		return nil, fmt.Errorf("failed to admit patient: %w", err)
	}
	s.notify(admission)
	return admission, nil
}

func (s *admissionService) ListAdmissions(ctx context.Context, status string, page, limit int) ([]model.Admission, int64, error) {
	if status != "" && status != model.AdmissionAdmitted && status != model.AdmissionDischarged {
		return nil, 0, invalid("invalid status filter %q", status)
	}
	return s.repo.List(ctx, status, page, limit)
}

func (s *admissionService) ChangeRoom(ctx context.Context, id string, req ChangeRoomRequest) (*model.Admission, error) {
	if !model.IsValidRoomType(req.RoomType) {
		return nil, invalid("Invalid roomType")
	}
	admission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	admission.RoomType = req.RoomType
	if err := s.repo.Update(ctx, admission); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}
	s.notify(admission)
	return admission, nil
}

func (s *admissionService) Discharge(ctx context.Context, id string) (*model.Admission, error) {
	admission, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if admission.Status == model.AdmissionDischarged {
		return nil, conflict("admission is already discharged")
	}

	admission.Status = model.AdmissionDischarged
	if err := s.repo.Update(ctx, admission); err != nil {
		return nil, fmt.Errorf("failed to discharge: %w", err)
	}
	return admission, nil
}

func (s *admissionService) load(ctx context.Context, id string) (*model.Admission, error) {
	admissionID, err := uuid.Parse(id)
	if err != nil {
		return nil, invalid("invalid admission id")
	}
	admission, err := s.repo.FindByID(ctx, admissionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, notFound("Admission not found")
		}
		return nil, fmt.Errorf("failed to load admission: %w", err)
	}
	return admission, nil
}

func (s *admissionService) notify(a *model.Admission) {
	if s.analytics == nil {
		return
	}
	s.analytics.Notify(upstream.AdmissionEvent{
		Type:        "admission",
		PatientName: a.PatientName,
		Age:         a.Age,
		Gender:      a.Gender,
		RoomType:    a.RoomType,
		Doctor:      a.Doctor,
		AdmittedAt:  a.AdmittedAt.UTC().Format(time.RFC3339),
		AdmissionID: a.ID.String(),
	})
}
