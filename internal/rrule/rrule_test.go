package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/models"
)

var lima = time.FixedZone("PET", -5*60*60)

func TestRuleStrings(t *testing.T) {
	require.Equal(t, "FREQ=MONTHLY;BYMONTHDAY=5",
		ForRecurringPayment(&models.RecurringPayment{DayOfMonth: 5}))
	require.Equal(t, "FREQ=MONTHLY;BYMONTHDAY=15;BYDAY=MO,FR",
		ForRecurringPayment(&models.RecurringPayment{DayOfMonth: 15, DaysOfWeek: []int{1, 5}}))
	require.Equal(t, "FREQ=WEEKLY;BYDAY=SU,SA",
		ForDailyBudget(&models.DailyBudget{DaysOfWeek: []int{0, 6}}))
}

func TestOccursOn(t *testing.T) {
	tests := []struct {
		name string
		rule string
		day  time.Time
		want bool
	}{
		{"monthly day match", "FREQ=MONTHLY;BYMONTHDAY=5", time.Date(2024, 3, 5, 23, 30, 0, 0, lima), true},
		{"monthly day miss", "FREQ=MONTHLY;BYMONTHDAY=5", time.Date(2024, 3, 6, 0, 0, 0, 0, lima), false},
		// 2024-03-15 is a Friday, 2024-04-15 a Monday, 2024-05-15 a Wednesday.
		{"weekday filter friday", "FREQ=MONTHLY;BYMONTHDAY=15;BYDAY=MO,FR", time.Date(2024, 3, 15, 9, 0, 0, 0, lima), true},
		{"weekday filter monday", "FREQ=MONTHLY;BYMONTHDAY=15;BYDAY=MO,FR", time.Date(2024, 4, 15, 9, 0, 0, 0, lima), true},
		{"weekday filter wednesday", "FREQ=MONTHLY;BYMONTHDAY=15;BYDAY=MO,FR", time.Date(2024, 5, 15, 9, 0, 0, 0, lima), false},
		{"day 31 in a 30 day month", "FREQ=MONTHLY;BYMONTHDAY=31", time.Date(2024, 4, 30, 9, 0, 0, 0, lima), false},
		// 2024-03-04 is a Monday.
		{"weekly monday", "FREQ=WEEKLY;BYDAY=MO,WE", time.Date(2024, 3, 4, 12, 0, 0, 0, lima), true},
		{"weekly tuesday", "FREQ=WEEKLY;BYDAY=MO,WE", time.Date(2024, 3, 5, 12, 0, 0, 0, lima), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OccursOn(tt.rule, tt.day, lima)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOccursOnUsesLocalCalendarDate(t *testing.T) {
	// 03:00 UTC on the 6th is still the 5th in Lima.
	instant := time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC)
	got, err := OccursOn("FREQ=MONTHLY;BYMONTHDAY=5", instant, lima)
	require.NoError(t, err)
	require.True(t, got)
}

func TestBetween(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, lima)
	to := time.Date(2024, 3, 11, 0, 0, 0, 0, lima)

	got, err := Between("FREQ=WEEKLY;BYDAY=MO", from, to, lima)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 4, got[0].Day())
	require.Equal(t, 11, got[1].Day())

	none, err := Between("FREQ=WEEKLY;BYDAY=MO", to, from, lima)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestParseRRuleRejectsGarbage(t *testing.T) {
	_, err := ParseRRule("FREQ=SOMETIMES", time.Now(), lima)
	require.Error(t, err)
}

func TestHumanReadableSpanish(t *testing.T) {
	require.Equal(t, "Cada mes, el día 5", HumanReadableSpanish("FREQ=MONTHLY;BYMONTHDAY=5"))
	require.Equal(t, "Cada mes, el día 15 si cae en lun, vie", HumanReadableSpanish("FREQ=MONTHLY;BYMONTHDAY=15;BYDAY=MO,FR"))
	require.Equal(t, "Cada semana: sáb, dom", HumanReadableSpanish("FREQ=WEEKLY;BYDAY=SA,SU"))
}
