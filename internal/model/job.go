package model

import "time"

type Job struct {
	ID          int64         `json:"id"`
	RunID       int64         `json:"run_id"`
	RunAttempt  int           `json:"run_attempt"`
	Name        string        `json:"name"`
	Status      RunStatus     `json:"status"`
	Conclusion  RunConclusion `json:"conclusion"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Steps       []Step        `json:"steps"`
	HTMLURL     string        `json:"html_url"`

	// Log is the raw job log. Steps index into it through LogStart/LogEnd.
	Log string `json:"-"`
}

type Step struct {
	Name        string        `json:"name"`
	Status      RunStatus     `json:"status"`
	Conclusion  RunConclusion `json:"conclusion"`
	Number      int           `json:"number"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`

	LogStart int `json:"-"`
	LogEnd   int `json:"-"`
}

type JobsResponse struct {
	TotalCount int   `json:"total_count"`
	Jobs       []Job `json:"jobs"`
}

func (j Job) Failed() bool {
	return j.Conclusion.Failing()
}

func (s Step) Failed() bool {
	return s.Conclusion.Failing()
}

// FirstFailedStep returns the first failing step in step order.
func (j Job) FirstFailedStep() (Step, bool) {
	for _, s := range j.Steps {
		if s.Failed() {
			return s, true
		}
	}
	return Step{}, false
}

// StepBounds returns the step's byte range in j.Log, clamped to the log.
func (j Job) StepBounds(s Step) (start, end int) {
	start, end = s.LogStart, s.LogEnd
	if start < 0 {
		start = 0
	}
	if end > len(j.Log) {
		end = len(j.Log)
	}
	if start > end {
		start = end
	}
	return start, end
}

// StepText returns the slice of the job log belonging to s.
func (j Job) StepText(s Step) string {
	start, end := j.StepBounds(s)
	return j.Log[start:end]
}
