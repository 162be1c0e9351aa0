package memory

import "testing"

func TestSampleClassification(t *testing.T) {
	o := New(1<<40, 1<<41) // thresholds far above any real process, forces Normal
	r := o.Sample()
	if r.Level != Normal {
		t.Errorf("Level = %v, want Normal", r.Level)
	}
}

func TestSampleCriticalWhenThresholdsAreZero(t *testing.T) {
	o := New(0, 0)
	r := o.Sample()
	if r.Level != Critical {
		t.Errorf("Level = %v, want Critical", r.Level)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{
		Normal:   "normal",
		Elevated: "elevated",
		Critical: "critical",
	}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", level, got, want)
		}
	}
}
