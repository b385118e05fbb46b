package service

import (
	"context"
	"testing"
	"time"

	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/upstream"

	"github.com/google/uuid"
)

func TestAdmissionLifecycle(t *testing.T) {
	s := newMemStore()
	n := &recordingNotifier{}
	svc := NewAdmissionService(memAdmissions{s}, n)
	svc.(*admissionService).now = func() time.Time { return time.Date(2025, 5, 2, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()

	a, err := svc.Admit(ctx, CreateAdmissionRequest{PatientName: "Meera Iyer", Age: intPtr(61), Gender: "F", RoomType: model.RoomGeneral, Doctor: "Dr. Rao"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != model.AdmissionAdmitted {
		t.Errorf("status = %q", a.Status)
	}

	a, err = svc.ChangeRoom(ctx, a.ID.String(), ChangeRoomRequest{RoomType: model.RoomICU})
	if err != nil || a.RoomType != model.RoomICU {
		t.Fatalf("ChangeRoom = %+v, %v", a, err)
	}

	events := n.all()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	ev := events[1].(upstream.AdmissionEvent)
	if ev.Type != "admission" || ev.RoomType != model.RoomICU || ev.AdmissionID != a.ID.String() ||
		ev.AdmittedAt != "2025-05-02T09:30:00Z" || ev.Age == nil || *ev.Age != 61 {
		t.Errorf("event = %+v", ev)
	}

	if _, err := svc.Discharge(ctx, a.ID.String()); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Discharge(ctx, a.ID.String()); !IsKind(err, KindConflict) {
		t.Errorf("second discharge: %v", err)
	}

	list, total, err := svc.ListAdmissions(ctx, model.AdmissionDischarged, 1, 10)
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("list = %d/%d, %v", len(list), total, err)
	}
}

func TestAdmissionValidation(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewAdmissionService(memAdmissions{newMemStore()}, n)
	ctx := context.Background()

	if _, err := svc.Admit(ctx, CreateAdmissionRequest{PatientName: "X", RoomType: "Suite"}); !IsKind(err, KindInvalid) {
		t.Errorf("bad room: %v", err)
	}
	if _, err := svc.Admit(ctx, CreateAdmissionRequest{PatientName: "  ", RoomType: model.RoomPrivate}); !IsKind(err, KindInvalid) {
		t.Errorf("blank name: %v", err)
	}
	if _, err := svc.ChangeRoom(ctx, uuid.NewString(), ChangeRoomRequest{RoomType: model.RoomPrivate}); !IsKind(err, KindNotFound) {
		t.Errorf("unknown admission: %v", err)
	}
	if _, _, err := svc.ListAdmissions(ctx, "Gone", 1, 10); !IsKind(err, KindInvalid) {
		t.Errorf("bad filter: %v", err)
	}
	if len(n.all()) != 0 {
		t.Error("events sent for rejected requests")
	}
}
