// Package schedule expands a medication's dosing schedule into dose records.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/adherence-api/internal/model"
)

const (
	clockLayout = "15:04"
	dateLayout  = "2006-01-02"
)

// ParseTimes splits a comma-separated "HH:MM" list. Blank entries are
// ignored; the result is sorted and de-duplicated.
func ParseTimes(s string) ([]string, error) {
	return parseList(s, clockLayout, "time")
}

// ParseDates splits a comma-separated "YYYY-MM-DD" list like ParseTimes.
func ParseDates(s string) ([]string, error) {
	return parseList(s, dateLayout, "date")
}

func parseList(s, layout, kind string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := time.Parse(layout, part)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", kind, part)
		}
		norm := t.Format(layout)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return out, nil
}

// Join renders values in the stored "a, b" form.
func Join(values []string) string {
	return strings.Join(values, ", ")
}

// IsPRN reports whether the medication is taken as needed.
func IsPRN(med *model.Medication) bool {
	return med.RecurrenceType == model.RecurrenceCustom && strings.TrimSpace(med.RecurrenceCustomDates) == ""
}

// Days returns the calendar days on which the medication has doses.
func Days(med *model.Medication, loc *time.Location) ([]time.Time, error) {
	if IsPRN(med) {
		return nil, nil
	}
	if med.RecurrenceType == model.RecurrenceCustom {
		dates, err := ParseDates(med.RecurrenceCustomDates)
		if err != nil {
			return nil, err
		}
		days := make([]time.Time, 0, len(dates))
		for _, d := range dates {
			t, _ := time.ParseInLocation(dateLayout, d, loc)
			days = append(days, t)
		}
		return days, nil
	}

	start := med.StartDate
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	days := make([]time.Time, 0, med.TreatmentDurationDays)
	for i := 0; i < med.TreatmentDurationDays; i++ {
		days = append(days, first.AddDate(0, 0, i))
	}
	return days, nil
}

// Generate returns one pending dose per (day, time) of the medication,
// interpreting times in loc. PRN medications produce none.
func Generate(med *model.Medication, loc *time.Location) ([]*model.DoseRecord, error) {
	return Regenerate(med, time.Time{}, loc)
}

// Regenerate is Generate restricted to doses scheduled strictly after after.
// A zero after keeps every dose.
func Regenerate(med *model.Medication, after time.Time, loc *time.Location) ([]*model.DoseRecord, error) {
	if loc == nil {
		loc = time.UTC
	}
	times, err := ParseTimes(med.Schedules)
	if err != nil {
		return nil, err
	}
	days, err := Days(med, loc)
	if err != nil {
		return nil, err
	}

	doses := make([]*model.DoseRecord, 0, len(days)*len(times))
	for _, day := range days {
		for _, clock := range times {
			t, _ := time.Parse(clockLayout, clock)
			at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			if !after.IsZero() && !at.After(after) {
				continue
			}
			doses = append(doses, &model.DoseRecord{
				MedicationID:  med.ID,
				PharmacyID:    med.PharmacyID,
				ClientID:      med.ClientID,
				ScheduledTime: at,
				Status:        model.DoseStatusPending,
			})
		}
	}
	return doses, nil
}
