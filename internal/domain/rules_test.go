package domain

import (
	"errors"
	"testing"
	"time"

	"fitgrove/internal/models"
)

func user(id int, role models.UserRole) *models.User {
	return &models.User{ID: id, UserType: role}
}

func TestValidateRolePair(t *testing.T) {
	coach := user(1, models.RoleCoach)
	client := user(2, models.RoleNormal)

	if err := ValidateRolePair(coach, client); err != nil {
		t.Fatalf("valid pair rejected: %v", err)
	}

	// Swapping the roles must always fail, whichever side is wrong.
	cases := []struct {
		name            string
		coach, assignee *models.User
		field           string
	}{
		{"swapped", client, coach, "coach"},
		{"coach is normal", user(3, models.RoleNormal), client, "coach"},
		{"assignee is coach", coach, user(4, models.RoleCoach), "user"},
		{"both coaches", coach, user(5, models.RoleCoach), "user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRolePair(tc.coach, tc.assignee)
			if !errors.Is(err, ErrRoleViolation) {
				t.Fatalf("expected RoleViolation, got %v", err)
			}
			var re *RuleError
			if !errors.As(err, &re) || re.Field != tc.field {
				t.Errorf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	start := models.NewDate(2024, time.January, 10)

	if err := ValidateDateRange(start, nil); err != nil {
		t.Errorf("open-ended range rejected: %v", err)
	}

	same := start
	if err := ValidateDateRange(start, &same); err != nil {
		t.Errorf("end == start rejected: %v", err)
	}

	later := models.NewDate(2024, time.March, 1)
	if err := ValidateDateRange(start, &later); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}

	dayBefore := models.NewDate(2024, time.January, 9)
	if err := ValidateDateRange(start, &dayBefore); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("end one day before start: expected InvalidRange, got %v", err)
	}
}

func TestValidateSchedulePresence(t *testing.T) {
	date := models.NewDate(2024, time.February, 5)

	// Monday is day 0; the zero value must count as present.
	monday := 0
	if err := ValidateSchedulePresence(&monday, nil); err != nil {
		t.Errorf("day_of_week=0 with no date rejected: %v", err)
	}

	sunday := 6
	if err := ValidateSchedulePresence(&sunday, nil); err != nil {
		t.Errorf("day_of_week=6 rejected: %v", err)
	}

	if err := ValidateSchedulePresence(nil, &date); err != nil {
		t.Errorf("scheduled_date only rejected: %v", err)
	}

	if err := ValidateSchedulePresence(&monday, &date); err != nil {
		t.Errorf("both present rejected: %v", err)
	}

	if err := ValidateSchedulePresence(nil, nil); !errors.Is(err, ErrMissingSchedule) {
		t.Errorf("neither present: expected MissingSchedule, got %v", err)
	}

	outOfRange := 7
	if err := ValidateSchedulePresence(&outOfRange, nil); !errors.Is(err, ErrMissingSchedule) {
		t.Errorf("day_of_week=7: expected MissingSchedule, got %v", err)
	}
	negative := -1
	if err := ValidateSchedulePresence(&negative, nil); !errors.Is(err, ErrMissingSchedule) {
		t.Errorf("day_of_week=-1: expected MissingSchedule, got %v", err)
	}
}

func TestValidateSelfCoach(t *testing.T) {
	if err := ValidateSelfCoach(7, 7); !errors.Is(err, ErrSelfReference) {
		t.Errorf("self coach: expected SelfReference, got %v", err)
	}
	if err := ValidateSelfCoach(7, 8); err != nil {
		t.Errorf("distinct coach rejected: %v", err)
	}
}

func TestValidateCoachAssignment(t *testing.T) {
	client := user(1, models.RoleNormal)
	coach := user(2, models.RoleCoach)

	if err := ValidateCoachAssignment(client, coach); err != nil {
		t.Fatalf("valid assignment rejected: %v", err)
	}

	if err := ValidateCoachAssignment(coach, user(3, models.RoleCoach)); !errors.Is(err, ErrRoleViolation) {
		t.Errorf("coach holding an assignment: expected RoleViolation, got %v", err)
	}

	if err := ValidateCoachAssignment(client, user(1, models.RoleCoach)); !errors.Is(err, ErrSelfReference) {
		t.Errorf("self assignment: expected SelfReference, got %v", err)
	}

	if err := ValidateCoachAssignment(client, user(4, models.RoleNormal)); !errors.Is(err, ErrRoleViolation) {
		t.Errorf("normal user as coach: expected RoleViolation, got %v", err)
	}
}

func TestRuleErrorMessageNamesField(t *testing.T) {
	err := ValidateRolePair(user(1, models.RoleNormal), user(2, models.RoleNormal))
	if err == nil || err.Error() != "coach: role violation" {
		t.Errorf("unexpected message: %v", err)
	}
}
