package db

import "testing"

func TestWeightFromName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want int16
	}{
		{"prefer", WeightPrefer},
		{"neutral", WeightNeutral},
		{"", WeightNeutral},
		{"deprioritize", WeightDeprioritize},
	}
	for _, tc := range cases {
		got, err := WeightFromName(tc.name)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("weight for %q: got %d want %d", tc.name, got, tc.want)
		}
	}

	if _, err := WeightFromName("favourite"); err == nil {
		t.Fatalf("expected error for unknown weight name")
	}
}

func TestWeightName_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"prefer", "neutral", "deprioritize"} {
		weight, err := WeightFromName(name)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", name, err)
		}
		if got := WeightName(weight); got != name {
			t.Fatalf("round trip for %q: got %q", name, got)
		}
	}
	if got := WeightName(5); got != "prefer" {
		t.Fatalf("out-of-range positive weight: got %q want prefer", got)
	}
	if got := WeightName(-3); got != "deprioritize" {
		t.Fatalf("out-of-range negative weight: got %q want deprioritize", got)
	}
}
