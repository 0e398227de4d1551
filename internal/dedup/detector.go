package dedup

import (
	"fmt"

	"github.com/altinukshini/gha-triage/internal/model"
)

const (
	DefaultThreshold = 0.90
	DefaultBuffer    = 0.05
)

type VerdictKind int

const (
	Novel VerdictKind = iota
	Duplicate
	Inconclusive
)

func (k VerdictKind) String() string {
	switch k {
	case Duplicate:
		return "duplicate"
	case Inconclusive:
		return "inconclusive"
	default:
		return "novel"
	}
}

// Verdict is the outcome of comparing a failure against existing issues.
// Issue is the number of the best matching issue (zero when nothing was
// compared) and Score its similarity.
type Verdict struct {
	Kind     VerdictKind
	Issue    int
	Score    float64
	Compared int
}

func (v Verdict) String() string {
	switch v.Kind {
	case Duplicate:
		return fmt.Sprintf("duplicate of #%d (similarity %.3f)", v.Issue, v.Score)
	case Inconclusive:
		return fmt.Sprintf("inconclusive, closest #%d (similarity %.3f)", v.Issue, v.Score)
	default:
		if v.Issue == 0 {
			return fmt.Sprintf("novel (compared %d)", v.Compared)
		}
		return fmt.Sprintf("novel, closest #%d (similarity %.3f)", v.Issue, v.Score)
	}
}

// Detector holds the duplicate policy. A best similarity at or above
// Threshold is a duplicate; within Buffer below it the verdict is
// inconclusive.
type Detector struct {
	Threshold float64
	Buffer    float64
}

func NewDetector(threshold, buffer float64) (Detector, error) {
	d := Detector{Threshold: threshold, Buffer: buffer}
	return d, d.Validate()
}

func (d Detector) Validate() error {
	if d.Threshold <= 0 || d.Threshold > 1 {
		return fmt.Errorf("threshold must be in (0, 1], got %v", d.Threshold)
	}
	if d.Buffer < 0 || d.Buffer >= d.Threshold {
		return fmt.Errorf("inconclusive buffer must be in [0, threshold), got %v", d.Buffer)
	}
	return nil
}

// Check compares sig with every existing issue in the order given. An
// issue's embedded signature is used when it has one, otherwise its title
// and body are normalized.
func (d Detector) Check(sig Signature, existing []model.ExistingIssue) Verdict {
	return d.decide(existing, func(ex model.ExistingIssue) float64 {
		if other, ok := ExtractSignature(ex.Body); ok {
			return Similarity(sig, other)
		}
		return Similarity(sig, SignatureOf(ex.Title, ex.Body))
	})
}

// CheckIssue compares a composed issue like with like: embedded signatures
// against each other when both sides carry one, whole normalized issues
// otherwise. Issues without an embedded signature, such as those filed by
// hand, are normalized whole, so each comparison costs at most
// MaxSignatureRunes squared.
func (d Detector) CheckIssue(issue model.Issue, existing []model.ExistingIssue) Verdict {
	whole := SignatureOf(issue.Title, issue.Body)
	embedded, hasEmbedded := ExtractSignature(issue.Body)
	return d.decide(existing, func(ex model.ExistingIssue) float64 {
		if hasEmbedded {
			if other, ok := ExtractSignature(ex.Body); ok {
				return Similarity(embedded, other)
			}
		}
		return Similarity(whole, SignatureOf(ex.Title, ex.Body))
	})
}

func (d Detector) decide(existing []model.ExistingIssue, score func(model.ExistingIssue) float64) Verdict {
	v := Verdict{Kind: Novel, Compared: len(existing)}
	best := -1
	for i, ex := range existing {
		s := score(ex)
		if best < 0 || s > v.Score || (s == v.Score && createdBefore(ex, existing[best])) {
			best = i
			v.Score = s
		}
	}
	if best < 0 {
		return v
	}

	v.Issue = existing[best].Number
	switch {
	case v.Score >= d.Threshold:
		v.Kind = Duplicate
	case v.Score >= d.Threshold-d.Buffer:
		v.Kind = Inconclusive
	}
	return v
}

// createdBefore orders by creation time. Issues without a creation time
// sort after dated ones; remaining ties keep the supplied order.
func createdBefore(a, b model.ExistingIssue) bool {
	switch {
	case a.CreatedAt.IsZero():
		return false
	case b.CreatedAt.IsZero():
		return true
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}
