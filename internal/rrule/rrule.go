// Package rrule expresses obligation schedules as RFC 5545 recurrence rules.
// Recurring payments are FREQ=MONTHLY;BYMONTHDAY=d with an optional BYDAY
// filter, daily budgets are FREQ=WEEKLY;BYDAY=... .
package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/ledgerline/internal/models"
)

// Common frequencies
const (
	FreqWeekly  = rrule.WEEKLY
	FreqMonthly = rrule.MONTHLY
)

// weekdays is indexed by time.Weekday, 0 = Sunday.
var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var weekdayCodes = map[rrule.Weekday]string{
	rrule.MO: "MO",
	rrule.TU: "TU",
	rrule.WE: "WE",
	rrule.TH: "TH",
	rrule.FR: "FR",
	rrule.SA: "SA",
	rrule.SU: "SU",
}

// RRuleBuilder creates an RRULE string from components
type RRuleBuilder struct {
	Freq       rrule.Frequency
	ByWeekday  []rrule.Weekday
	ByMonthDay []int
}

func (b *RRuleBuilder) String() string {
	var parts []string

	freqMap := map[rrule.Frequency]string{
		rrule.WEEKLY:  "WEEKLY",
		rrule.MONTHLY: "MONTHLY",
	}
	parts = append(parts, fmt.Sprintf("FREQ=%s", freqMap[b.Freq]))

	if len(b.ByMonthDay) > 0 {
		days := make([]string, len(b.ByMonthDay))
		for i, d := range b.ByMonthDay {
			days[i] = fmt.Sprintf("%d", d)
		}
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%s", strings.Join(days, ",")))
	}

	if len(b.ByWeekday) > 0 {
		days := make([]string, len(b.ByWeekday))
		for i, d := range b.ByWeekday {
			days[i] = weekdayCodes[d]
		}
		parts = append(parts, fmt.Sprintf("BYDAY=%s", strings.Join(days, ",")))
	}

	return strings.Join(parts, ";")
}

// ToWeekdays converts 0 = Sunday weekday numbers. Out of range entries are skipped.
func ToWeekdays(days []int) []rrule.Weekday {
	var out []rrule.Weekday
	for _, d := range days {
		if d >= 0 && d < len(weekdays) {
			out = append(out, weekdays[d])
		}
	}
	return out
}

// ForRecurringPayment returns the rule for a recurring payment. A set of
// weekdays narrows the rule to month days that also fall on one of them.
func ForRecurringPayment(p *models.RecurringPayment) string {
	b := RRuleBuilder{
		Freq:       FreqMonthly,
		ByMonthDay: []int{p.DayOfMonth},
		ByWeekday:  ToWeekdays(p.DaysOfWeek),
	}
	return b.String()
}

// ForDailyBudget returns the weekly rule of a daily budget.
func ForDailyBudget(b *models.DailyBudget) string {
	builder := RRuleBuilder{
		Freq:      FreqWeekly,
		ByWeekday: ToWeekdays(b.DaysOfWeek),
	}
	return builder.String()
}

// ParseRRule parses an RFC 5545 RRULE string with occurrences at local
// midnight of loc, starting from the day of dtstart.
func ParseRRule(ruleStr string, dtstart time.Time, loc *time.Location) (*rrule.RRule, error) {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE: %w", err)
	}
	opt.Dtstart = StartOfDay(dtstart, loc)
	return rrule.NewRRule(*opt)
}

// StartOfDay returns local midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// OccursOn reports whether the rule has an occurrence on the calendar date of day in loc.
func OccursOn(ruleStr string, day time.Time, loc *time.Location) (bool, error) {
	start := StartOfDay(day, loc)
	occurrences, err := Between(ruleStr, start, start, loc)
	if err != nil {
		return false, err
	}
	return len(occurrences) > 0, nil
}

// Between returns the occurrences on the calendar dates from..to inclusive.
func Between(ruleStr string, from, to time.Time, loc *time.Location) ([]time.Time, error) {
	start := StartOfDay(from, loc)
	end := StartOfDay(to, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
	if end.Before(start) {
		return nil, nil
	}

	// Monthly rules repeat within a year, so a year back is a safe anchor.
	rule, err := ParseRRule(ruleStr, start.AddDate(-1, 0, 0), loc)
	if err != nil {
		return nil, err
	}
	return rule.Between(start, end, true), nil
}

// HumanReadableSpanish returns a short Spanish description of the rule.
func HumanReadableSpanish(ruleStr string) string {
	ruleStr = strings.TrimPrefix(ruleStr, "RRULE:")

	info := make(map[string]string)
	for _, p := range strings.Split(ruleStr, ";") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 {
			info[kv[0]] = kv[1]
		}
	}

	var result strings.Builder

	switch info["FREQ"] {
	case "WEEKLY":
		result.WriteString("Cada semana")
	case "MONTHLY":
		result.WriteString("Cada mes")
	}

	if byMonthDay := info["BYMONTHDAY"]; byMonthDay != "" {
		result.WriteString(fmt.Sprintf(", el día %s", byMonthDay))
	}

	if byDay := info["BYDAY"]; byDay != "" {
		dayMap := map[string]string{
			"MO": "lun", "TU": "mar", "WE": "mié", "TH": "jue",
			"FR": "vie", "SA": "sáb", "SU": "dom",
		}
		var names []string
		for _, d := range strings.Split(byDay, ",") {
			if name, ok := dayMap[d]; ok {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			if info["FREQ"] == "MONTHLY" {
				result.WriteString(" si cae en")
			} else {
				result.WriteString(":")
			}
			result.WriteString(" " + strings.Join(names, ", "))
		}
	}

	if result.Len() == 0 {
		return ruleStr
	}
	return result.String()
}
