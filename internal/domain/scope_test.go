package domain

import (
	"testing"

	"fitgrove/internal/models"
)

func TestOwnerScope(t *testing.T) {
	p := Principal{UserID: 42, Role: models.RoleNormal}
	s := OwnerScope(p, "user_id")
	if s.Column != "user_id" || s.Value != 42 {
		t.Errorf("got %+v", s)
	}

	// Coaches logging their own sessions are scoped by owner too.
	c := Principal{UserID: 9, Role: models.RoleCoach}
	s = OwnerScope(c, "user_id")
	if s.Column != "user_id" || s.Value != 9 {
		t.Errorf("got %+v", s)
	}
}

func TestPlanScope(t *testing.T) {
	coach := Principal{UserID: 5, Role: models.RoleCoach}
	s := PlanScope(coach, "coach_id", "user_id")
	if s.Column != "coach_id" || s.Value != 5 {
		t.Errorf("coach principal: got %+v", s)
	}

	client := Principal{UserID: 6, Role: models.RoleNormal}
	s = PlanScope(client, "coach_id", "user_id")
	if s.Column != "user_id" || s.Value != 6 {
		t.Errorf("normal principal: got %+v", s)
	}
}
