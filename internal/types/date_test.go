package types

import (
	"strings"
	"testing"
	"time"
)

func TestNextOccurrence_Daily(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		anchor   time.Time
		after    time.Time
		want     time.Time
	}{
		{
			name:     "after before anchor returns anchor",
			interval: 1,
			anchor:   time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			after:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "after exactly on occurrence returns next",
			interval: 1,
			anchor:   time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			after:    time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "interval 10 crossing month boundary",
			interval: 10,
			anchor:   time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC),
			after:    time.Date(2024, time.March, 26, 0, 0, 0, 0, time.UTC),
			want:     time.Date(2024, time.April, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "three year dormant plan resolves to correct occurrence",
			interval: 1,
			anchor:   time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
			after:    time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
			// 2021 and 2022 and 2023 span 365+365+365 days, 2024-01-01 is
			// occurrence 1095; next is 1096.
			want: time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(BILLING_FREQUENCY_DAILY, tt.interval, tt.anchor, tt.after)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_Weekly(t *testing.T) {
	// Weekly interval 2 anchored 2024-01-01 yields
	// 2024-01-01, 2024-01-15, 2024-01-29.
	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	first, err := NextOccurrence(BILLING_FREQUENCY_WEEKLY, 2, anchor, anchor.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(anchor) {
		t.Errorf("first occurrence = %v, want %v", first, anchor)
	}

	second, err := NextOccurrence(BILLING_FREQUENCY_WEEKLY, 2, anchor, first)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC); !second.Equal(want) {
		t.Errorf("second occurrence = %v, want %v", second, want)
	}

	third, err := NextOccurrence(BILLING_FREQUENCY_WEEKLY, 2, anchor, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, time.January, 29, 0, 0, 0, 0, time.UTC); !third.Equal(want) {
		t.Errorf("third occurrence = %v, want %v", third, want)
	}
}

func TestNextOccurrence_MonthlyClamping(t *testing.T) {
	// Anchored on Jan 31: short months clamp to their last day, later months
	// return to day 31. Clamping is per occurrence, never cumulative.
	anchor := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "february leap year clamps to 29",
			after: anchor,
			want:  time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "march returns to day 31",
			after: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "april clamps to 30",
			after: time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "february non leap year clamps to 28",
			after: time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "after inside clamped month before clamped day",
			after: time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "two year dormant plan",
			after: time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(BILLING_FREQUENCY_MONTHLY, 1, anchor, tt.after)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_MonthlyInterval(t *testing.T) {
	// Quarterly cadence anchored on Nov 30 crosses the year boundary.
	anchor := time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC)

	got, err := NextOccurrence(BILLING_FREQUENCY_MONTHLY, 3, anchor, anchor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("NextOccurrence() = %v, want %v", got, want)
	}
}

func TestNextOccurrence_YearlyLeapDay(t *testing.T) {
	anchor := time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "non leap year clamps to feb 28",
			after: anchor,
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "next leap year returns to feb 29",
			after: time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(BILLING_FREQUENCY_YEARLY, 1, anchor, tt.after)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextOccurrence_Invalid(t *testing.T) {
	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := NextOccurrence(BILLING_FREQUENCY_DAILY, 0, anchor, anchor)
	if err == nil || !strings.Contains(err.Error(), "positive integer") {
		t.Errorf("expected positive interval error, got %v", err)
	}

	_, err = NextOccurrence(BillingFrequency("hourly"), 1, anchor, anchor)
	if err == nil || !strings.Contains(err.Error(), "invalid billing frequency") {
		t.Errorf("expected invalid frequency error, got %v", err)
	}
}

func TestAddClampedDate(t *testing.T) {
	tests := []struct {
		name    string
		in      time.Time
		years   int
		months  int
		days    int
		want    time.Time
	}{
		{
			name:   "jan 31 plus one month clamps",
			in:     time.Date(2024, time.January, 31, 10, 30, 0, 0, time.UTC),
			months: 1,
			want:   time.Date(2024, time.February, 29, 10, 30, 0, 0, time.UTC),
		},
		{
			name:   "month overflow carries year",
			in:     time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC),
			months: 3,
			want:   time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "leap day plus one year clamps",
			in:    time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			years: 1,
			want:  time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "plain day addition",
			in:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			days: 14,
			want: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddClampedDate(tt.in, tt.years, tt.months, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("AddClampedDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddClampedDate_DSTShortenedFinalDay(t *testing.T) {
	// Jordan sprang forward at midnight entering 2017-03-31, making
	// March's final day 23 hours long. Clamping must still land on the
	// 31st, not drift back to the 30th.
	loc, err := time.LoadLocation("Asia/Amman")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	in := time.Date(2017, time.January, 31, 0, 0, 0, 0, loc)
	got := AddClampedDate(in, 0, 2, 0)

	y, m, d := got.Date()
	if y != 2017 || m != time.March || d != 31 {
		t.Errorf("AddClampedDate() = %v, want 2017-03-31", got)
	}
}
