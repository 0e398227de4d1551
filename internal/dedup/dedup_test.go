package dedup

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altinukshini/gha-triage/internal/model"
)

func failureBody(runID, jobID int64, ts string) string {
	return fmt.Sprintf(`**Run ID**: %[1]d [LINK TO RUN](https://github.com/luftkode/distro-template/actions/runs/%[1]d)

**1 job failed:**
- **`+"`Test template xilinx`"+`**

### `+"`Test template xilinx`"+` (ID %[2]d)
**Step failed:** `+"`📦 Build yocto image`"+`
\
**Log:** https://github.com/luftkode/distro-template/actions/runs/%[1]d/job/%[2]d
\
*Best effort error summary*:
`+"```"+`
%[3]s - ERROR - Command ['bitbake', 'core-image-minimal'] returned non-zero exit status 1
ERROR: sqlite3-native-3_3.43.2-r0 do_fetch: Bitbake Fetcher Error: MalformedUrl('${SOURCE_MIRROR_URL}')
ERROR: Logfile of failure stored in: /app/yocto/build/tmp/work/x86_64-linux/sqlite3-native/3.43.2/temp/log.do_fetch.21616
SSH_AUTH_SOCK: /tmp/ssh-XXXXXXJhUcQF/agent.2944549
`+"```"+`
`, runID, jobID, ts)
}

func TestNormalizeTimestampsAndIDs(t *testing.T) {
	a := Normalize("2024-02-11 00:09:04 - ERROR - run 7858139663 failed\n")
	b := Normalize("2024-03-05 10:00:00 - ERROR - run 8012345678 failed\n")
	assert.Equal(t, a.Text(), b.Text())
	assert.Equal(t, "<TIMESTAMP> - ERROR - run <ID> failed", a.Text())
}

func TestNormalizeVolatileTokens(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"at 2024-02-10T00:03:45.5797561Z done", "at <TIMESTAMP> done"},
		{"at 2024-02-10T00:03:45+02:00 done", "at <TIMESTAMP> done"},
		{"on 2024-02-10 only", "on <DATE> only"},
		{"at 10:00:01 sharp", "at <TIME> sharp"},
		{"epoch 1707523200.123 seconds", "epoch <ID> seconds"},
		{"commit 2f8c3b1d6e4a5f7c8b9d0e1f2a3b4c5d6e7f8a9b", "commit <SHA>"},
		{"stored in: /app/yocto/build/tmp/temp/log.do_fetch.21616", "stored in: <PATH>/log.do_fetch.<ID>"},
		{"SSH_AUTH_SOCK: /tmp/ssh-XXXXXXJhUcQF/agent.2944549", "SSH_AUTH_SOCK: <PATH>/agent.<ID>"},
		{"version 3.43.2 exit 1", "version 3.43.2 exit 1"},
		{"   spaced\t\tout   ", "spaced out"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"arrow --> here", "arrow - -> here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in).Text(), tt.in)
	}
}

func TestNormalizeDropsBlankLines(t *testing.T) {
	assert.Equal(t, "a\nb", Normalize("\n a \n\n\t\nb\n").Text())
}

func TestNormalizeUnicodeForms(t *testing.T) {
	composed := Normalize("caf\u00e9 failed")
	decomposed := Normalize("cafe\u0301 failed")
	assert.Equal(t, composed, decomposed)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(Signature{}, Signature{}))
	assert.Equal(t, 1.0, Similarity(Normalize("abc"), Normalize("abc")))
	assert.Equal(t, 0.0, Similarity(Normalize("abc"), Signature{}))
	assert.InDelta(t, 0.75, Similarity(Normalize("abcd"), Normalize("abcx")), 1e-12)
	assert.InDelta(t, 0.5, Similarity(Normalize("日本語x"), Normalize("日本yz")), 1e-12)
}

func TestNormalizeBoundsLength(t *testing.T) {
	sig := Normalize("ERROR: " + strings.Repeat("日", 2*MaxSignatureRunes) + "\nERROR: tail line")
	assert.Equal(t, MaxSignatureRunes, sig.Len())
	assert.True(t, strings.HasSuffix(sig.Text(), "ERROR: tail line"))

	embedded, ok := ExtractSignature(EmbedSignature(Signature{text: strings.Repeat("x", 3*MaxSignatureRunes)}))
	require.True(t, ok)
	assert.Equal(t, MaxSignatureRunes, embedded.Len())
}

func TestSimilarityLongUnrelatedSignatures(t *testing.T) {
	long := Normalize("ERROR: " + strings.Repeat("a", 70000))
	short := Normalize("ERROR: b")
	assert.Less(t, Similarity(long, short), 0.05)

	existing := []model.ExistingIssue{{Number: 3, Title: "Scheduled run failed", Body: EmbedSignature(short)}}
	v := Detector{Threshold: 0.9, Buffer: 0.05}.Check(long, existing)
	assert.Equal(t, Novel, v.Kind)
}

func TestSimilarityMonotonic(t *testing.T) {
	base := []rune(strings.Repeat("ERROR: recipe failed to fetch sources\n", 5))
	original := Signature{text: string(base)}

	prev := 1.0
	edited := append([]rune(nil), base...)
	for i := 0; i < len(edited); i += 3 {
		edited[i] = '#'
		score := Similarity(original, Signature{text: string(edited)})
		require.LessOrEqual(t, score, prev, "edit %d", i)
		prev = score
	}
	assert.Less(t, prev, 1.0)
}

func TestCheckDuplicateAcrossRuns(t *testing.T) {
	existing := []model.ExistingIssue{
		{Number: 12, Title: "Scheduled run failed", Body: "something unrelated\nwith a different failure"},
		{Number: 31, Title: "Scheduled run failed", Body: failureBody(7858139663, 21442749267, "2024-02-11 00:09:04")},
	}
	newSig := SignatureOf("Scheduled run failed", failureBody(8012345678, 21999999999, "2024-03-05 10:00:00"))

	d, err := NewDetector(0.9, 0.05)
	require.NoError(t, err)
	v := d.Check(newSig, existing)
	assert.Equal(t, Duplicate, v.Kind)
	assert.Equal(t, 31, v.Issue)
	assert.Equal(t, 1.0, v.Score)
	assert.Equal(t, 2, v.Compared)
}

func TestCheckNovelAndInconclusive(t *testing.T) {
	existing := []model.ExistingIssue{{Number: 5, Body: "abcdefghij"}}

	d := Detector{Threshold: 0.85, Buffer: 0.1}
	// one substitution out of ten runes: 0.9
	assert.Equal(t, Duplicate, d.Check(Normalize("abcdefghiX"), existing).Kind)
	// two substitutions: 0.8, inside the band
	v := d.Check(Normalize("abcdefghXY"), existing)
	assert.Equal(t, Inconclusive, v.Kind)
	assert.Equal(t, 5, v.Issue)
	assert.InDelta(t, 0.8, v.Score, 1e-12)
	// five substitutions: 0.5
	assert.Equal(t, Novel, d.Check(Normalize("abcdeVWXYZ"), existing).Kind)
}

func TestCheckNoExistingIssues(t *testing.T) {
	v := Detector{Threshold: 0.9}.Check(Normalize("anything"), nil)
	assert.Equal(t, Verdict{Kind: Novel}, v)
}

func TestCheckTiesPreferEarliestCreated(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := []model.ExistingIssue{
		{Number: 40, Body: "same failure", CreatedAt: now},
		{Number: 20, Body: "same failure", CreatedAt: now.Add(-48 * time.Hour)},
		{Number: 30, Body: "same failure", CreatedAt: now.Add(-24 * time.Hour)},
		{Number: 10, Body: "same failure"},
	}
	d := Detector{Threshold: 0.9, Buffer: 0.05}
	sig := SignatureOf("", "same failure")

	v := d.Check(sig, existing)
	assert.Equal(t, 20, v.Issue)

	reversed := []model.ExistingIssue{existing[3], existing[2], existing[1], existing[0]}
	assert.Equal(t, v, d.Check(sig, reversed))
}

func TestCheckTiesWithoutDatesKeepSuppliedOrder(t *testing.T) {
	existing := []model.ExistingIssue{{Number: 9, Body: "x"}, {Number: 3, Body: "x"}}
	v := Detector{Threshold: 0.5}.Check(SignatureOf("", "x"), existing)
	assert.Equal(t, 9, v.Issue)
}

func TestCheckDeterministic(t *testing.T) {
	existing := []model.ExistingIssue{
		{Number: 1, Body: failureBody(1111111111, 2222222222, "2024-01-01 00:00:00")},
		{Number: 2, Body: "ERROR: something else entirely"},
	}
	sig := Normalize("ERROR: sqlite3 fetch failed at 2024-01-02 03:04:05")
	d := Detector{Threshold: 0.9, Buffer: 0.05}

	first := d.Check(sig, existing)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, d.Check(sig, existing))
	}
}

func TestEmbeddedSignature(t *testing.T) {
	sig := Normalize("ERROR: boom at 2024-01-01 00:00:00\nstored in /a/b/log.do_fetch.12345")
	body := "visible text\n\n" + EmbedSignature(sig) + "\n"

	got, ok := ExtractSignature(body)
	require.True(t, ok)
	assert.Equal(t, sig, got)

	assert.Equal(t, Normalize("title\nvisible text"), SignatureOf("title", body))

	_, ok = ExtractSignature("no block here")
	assert.False(t, ok)
}

func TestCheckIssueComparesLikeWithLike(t *testing.T) {
	sumA := Normalize("ERROR: do_fetch failed for sqlite3-native")
	sumB := Normalize("ERROR: do_compile failed for openssl")

	issue := model.Issue{
		Title: "Scheduled run failed",
		Body:  failureBody(7858139663, 21442749267, "2024-01-01 00:00:00") + EmbedSignature(sumA),
	}
	existing := []model.ExistingIssue{
		{Number: 1, Title: "Scheduled run failed", Body: failureBody(9012345678, 22000000000, "2024-02-01 00:00:00") + EmbedSignature(sumB)},
		{Number: 2, Title: "Scheduled run failed", Body: failureBody(8012345678, 21999999999, "2024-03-01 00:00:00")},
	}

	d := Detector{Threshold: 0.9, Buffer: 0.05}
	v := d.CheckIssue(issue, existing)
	assert.Equal(t, Duplicate, v.Kind)
	assert.Equal(t, 2, v.Issue)
	assert.Equal(t, 1.0, v.Score)
}

func TestDetectorValidate(t *testing.T) {
	tests := []struct {
		d       Detector
		wantErr bool
	}{
		{Detector{Threshold: 0.9, Buffer: 0.05}, false},
		{Detector{Threshold: 1, Buffer: 0}, false},
		{Detector{Threshold: 0, Buffer: 0}, true},
		{Detector{Threshold: 1.2, Buffer: 0}, true},
		{Detector{Threshold: 0.5, Buffer: 0.5}, true},
		{Detector{Threshold: 0.5, Buffer: -0.1}, true},
	}
	for _, tt := range tests {
		err := tt.d.Validate()
		if tt.wantErr {
			assert.Error(t, err, "%+v", tt.d)
		} else {
			assert.NoError(t, err, "%+v", tt.d)
		}
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "duplicate of #4 (similarity 0.950)", Verdict{Kind: Duplicate, Issue: 4, Score: 0.95}.String())
	assert.Equal(t, "novel (compared 0)", Verdict{}.String())
}
