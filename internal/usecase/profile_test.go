package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edujoy/auth-service/internal/core/domain"
)

func TestProfileService_GetProfile(t *testing.T) {
	parent := seedUser(t, "C0rrect!Horse9")
	users := newStubUserRepo(parent)
	students := newStubStudentRepo()
	service := NewProfileService(users, students)

	profile, err := service.GetProfile(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.User.PasswordHash != "" {
		t.Fatalf("expected sanitized user")
	}
	if profile.Student != nil {
		t.Fatalf("expected no student profile for a parent account")
	}

	if _, err := service.GetProfile(context.Background(), "missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestProfileService_GetProfile_AttachesStudent(t *testing.T) {
	child := seedUser(t, "irrelevant")
	child.ID = "child-user-1"
	child.Role = domain.RoleStudent

	users := newStubUserRepo(child)
	students := newStubStudentRepo()
	if err := students.Create(context.Background(), domain.Student{
		ID:       "student-1",
		UserID:   "child-user-1",
		ParentID: "parent-1",
		Name:     "Maya",
		XP:       120,
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	service := NewProfileService(users, students)
	profile, err := service.GetProfile(context.Background(), "child-user-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Student == nil || profile.Student.ID != "student-1" {
		t.Fatalf("expected attached student profile, got %+v", profile.Student)
	}
}

func TestProfileService_ListChildren(t *testing.T) {
	parent := seedUser(t, "C0rrect!Horse9")
	childOne := seedUser(t, "irrelevant")
	childOne.ID = "child-user-1"
	childOne.Role = domain.RoleStudent
	childTwo := seedUser(t, "irrelevant")
	childTwo.ID = "child-user-2"
	childTwo.Role = domain.RoleStudent

	users := newStubUserRepo(parent, childOne, childTwo)
	students := newStubStudentRepo()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, userID := range []string{"child-user-1", "child-user-2", "orphan-user"} {
		if err := students.Create(context.Background(), domain.Student{
			ID:        userID + "-profile",
			UserID:    userID,
			ParentID:  parent.ID,
			Name:      "Child",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	service := NewProfileService(users, students)
	children, err := service.ListChildren(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("ListChildren failed: %v", err)
	}

	// The profile whose backing user is gone is skipped, not an error.
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	for _, child := range children {
		if child.User.PasswordHash != "" {
			t.Fatalf("expected sanitized child user")
		}
	}
}
