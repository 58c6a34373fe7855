package domain

import "fitgrove/internal/models"

// ValidateRolePair checks the author/assignee pair of a plan: the author
// must hold the coach role and the assignee the normal role.
func ValidateRolePair(coach, assignee *models.User) error {
	if coach.UserType != models.RoleCoach {
		return fieldError("coach", ErrRoleViolation)
	}
	if assignee.UserType != models.RoleNormal {
		return fieldError("user", ErrRoleViolation)
	}
	return nil
}

// ValidateDateRange accepts any range where end is absent or not earlier
// than start. end == start is valid.
func ValidateDateRange(start models.Date, end *models.Date) error {
	if end != nil && end.Before(start) {
		return fieldError("end_date", ErrInvalidRange)
	}
	return nil
}

// ValidateSchedulePresence requires at least one of dayOfWeek and
// scheduledDate. Presence is judged on the pointers, not the values:
// dayOfWeek 0 (Monday) is set, not falsy.
func ValidateSchedulePresence(dayOfWeek *int, scheduledDate *models.Date) error {
	if dayOfWeek == nil && scheduledDate == nil {
		return fieldError("day_of_week", ErrMissingSchedule)
	}
	if dayOfWeek != nil && (*dayOfWeek < 0 || *dayOfWeek > 6) {
		return fieldError("day_of_week", ErrMissingSchedule)
	}
	return nil
}

// ValidateSelfCoach rejects a user assigning themselves as their coach.
func ValidateSelfCoach(userID, coachID int) error {
	if userID == coachID {
		return fieldError("coach", ErrSelfReference)
	}
	return nil
}

// ValidateCoachAssignment checks a normal user's coach link: only normal
// users may hold one, the target must not be the user, and the target must
// hold the coach role.
func ValidateCoachAssignment(user, coach *models.User) error {
	if user.UserType != models.RoleNormal {
		return fieldError("coach", ErrRoleViolation)
	}
	if err := ValidateSelfCoach(user.ID, coach.ID); err != nil {
		return err
	}
	if coach.UserType != models.RoleCoach {
		return fieldError("coach", ErrRoleViolation)
	}
	return nil
}
