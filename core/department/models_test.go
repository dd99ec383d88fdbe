package department

import (
	"testing"
	"time"
)

func TestRecruitmentStatus(t *testing.T) {
	now := time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	lastWeek := now.AddDate(0, 0, -7)
	nextWeek := now.AddDate(0, 0, 7)

	tests := []struct {
		name string
		dept Department
		want string
	}{
		{name: "inactive", dept: Department{}, want: StatusClosed},
		{
			name: "inactive within window",
			dept: Department{RecruitmentStart: lastWeek, RecruitmentEnd: nextWeek},
			want: StatusClosed,
		},
		{
			name: "inactive before start",
			dept: Department{RecruitmentStart: nextWeek},
			want: StatusUpcoming,
		},
		{
			name: "inactive after end",
			dept: Department{RecruitmentStart: lastWeek.AddDate(0, 0, -7), RecruitmentEnd: lastWeek},
			want: StatusEnded,
		},
		{
			name: "no window",
			dept: Department{IsActive: true},
			want: StatusOpen,
		},
		{
			name: "before start",
			dept: Department{IsActive: true, RecruitmentStart: nextWeek},
			want: StatusUpcoming,
		},
		{
			name: "within window",
			dept: Department{IsActive: true, RecruitmentStart: lastWeek, RecruitmentEnd: nextWeek},
			want: StatusOpen,
		},
		{
			name: "after end",
			dept: Department{IsActive: true, RecruitmentStart: lastWeek.AddDate(0, 0, -7), RecruitmentEnd: lastWeek},
			want: StatusEnded,
		},
		{
			name: "open-ended",
			dept: Department{IsActive: true, RecruitmentStart: lastWeek},
			want: StatusOpen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dept.RecruitmentStatus(now); got != tt.want {
				t.Errorf("RecruitmentStatus() = %v, want %v", got, tt.want)
			}
			if gotOpen := tt.dept.IsOpen(now); gotOpen != (tt.want == StatusOpen) {
				t.Errorf("IsOpen() = %v, status %v", gotOpen, tt.want)
			}
		})
	}
}
