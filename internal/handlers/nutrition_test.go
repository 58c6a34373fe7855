package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitgrove/internal/models"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		valid bool
	}{
		{"08:00", "08:00", true},
		{"8:00", "08:00", true},
		{"23:59", "23:59", true},
		{"0:05", "00:05", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"noon", "", false},
		{"08:00:00", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, err := parseClock(c.in)
		if !c.valid {
			assert.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

// Unpadded input must land on the same stored value as its padded form,
// or two spellings of one slot would slip past the per-plan uniqueness.
func TestPlanMealRequestNormalizesTime(t *testing.T) {
	mt := models.MealBreakfast
	tm := "8:00"
	req := planMealRequest{MealType: &mt, ScheduledTime: &tm}
	require.NoError(t, req.validate(""))
	assert.Equal(t, "08:00", *req.ScheduledTime)
}
