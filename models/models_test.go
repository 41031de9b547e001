package models

import "testing"

func TestParseChallengeType(t *testing.T) {
	cases := []struct {
		in      string
		want    ChallengeType
		wantErr bool
	}{
		{"Streak", ChallengeStreak, false},
		{"meal", ChallengeMeal, false},
		{"ACTIVITY", ChallengeActivity, false},
		{"goal", ChallengeGoal, false},
		{"steps", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseChallengeType(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseChallengeType(%q) err = %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseChallengeType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGoalPercent(t *testing.T) {
	cases := []struct {
		name                   string
		start, current, target float64
		want                   int
		ok                     bool
	}{
		{"halfway down", 100, 90, 80, 50, true},
		{"reached", 100, 80, 80, 100, true},
		{"overshot", 100, 70, 80, 100, true},
		{"gained", 100, 105, 80, 0, true},
		{"gain goal", 60, 65, 70, 50, true},
		{"no target", 100, 90, 0, 0, false},
		{"start equals target", 80, 80, 80, 0, false},
	}
	for _, tc := range cases {
		u := User{StartWeight: tc.start, CurrentWeight: tc.current, TargetWeight: tc.target}
		got, ok := u.GoalPercent()
		if got != tc.want || ok != tc.ok {
			t.Errorf("%s: GoalPercent() = %d,%v want %d,%v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
