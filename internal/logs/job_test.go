package logs

import (
	"testing"

	"github.com/altinukshini/gha-triage/internal/model"
)

func TestIsPrefixed(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"\njob\tstep\t2024-02-10T00:00:00.0000000Z hello\n", true},
		{"2024-02-10T00:00:00.0000000Z hello\tworld\n", false},
		{"a\tb\tc\n", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPrefixed(tt.raw); got != tt.want {
			t.Errorf("IsPrefixed(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestForJob(t *testing.T) {
	job := model.Job{
		ID:   7,
		Name: "build",
		Steps: []model.Step{
			{Number: 1, Name: "Set up job", StartedAt: mustTime(t, "2024-02-10T00:00:00Z")},
			{Number: 2, Name: "Compile", StartedAt: mustTime(t, "2024-02-10T00:00:10Z"), Conclusion: model.ConclusionFailure},
		},
	}

	t.Run("timestamped", func(t *testing.T) {
		raw := "2024-02-10T00:00:01.0000000Z setup\n2024-02-10T00:00:11.0000000Z error: nope\n"
		got := ForJob(job, raw)
		if text := got.StepText(got.Steps[1]); text != "error: nope\n" {
			t.Errorf("failed step text = %q", text)
		}
	})

	t.Run("prefixed", func(t *testing.T) {
		raw := "other\tCompile\t2024-02-10T00:00:11.0000000Z not this one\n" +
			"build\tCompile\t2024-02-10T00:00:11.0000000Z error: nope\n"
		got := ForJob(job, raw)
		if text := got.StepText(got.Steps[1]); text != "error: nope\n" {
			t.Errorf("failed step text = %q", text)
		}
		if text := got.StepText(got.Steps[0]); text != "" {
			t.Errorf("setup step text = %q, want empty", text)
		}
	})
}
