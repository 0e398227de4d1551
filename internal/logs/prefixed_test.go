package logs

import "testing"

func TestParsePrefixed(t *testing.T) {
	raw := "Test template xilinx\tSet up job\t2024-02-10T00:03:45.5797561Z Current runner version: '2.312.0'\n" +
		"Test template xilinx\t📦 Build yocto image\t2024-02-10T00:09:04.1000000Z ERROR: Task failed\n" +
		"Test template xilinx\t📦 Build yocto image\t2024-02-10T00:09:04.2000000Z Summary: 1 task failed\n" +
		"Test template raspberry\tBuild\t2024-02-10T00:09:05.0000000Z error: linker failed\n"

	jobs := ParsePrefixed(raw)
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].Job != "Test template xilinx" {
		t.Errorf("jobs[0].Job = %q", jobs[0].Job)
	}
	if len(jobs[0].Steps) != 2 {
		t.Fatalf("jobs[0] has %d steps, want 2", len(jobs[0].Steps))
	}
	build := jobs[0].Steps[1]
	if build.Name != "📦 Build yocto image" {
		t.Errorf("step name = %q", build.Name)
	}
	if want := "ERROR: Task failed\nSummary: 1 task failed\n"; build.Text != want {
		t.Errorf("step text = %q, want %q", build.Text, want)
	}

	steps, ok := Find(jobs, "Test template raspberry")
	if !ok || len(steps) != 1 || steps[0].Text != "error: linker failed\n" {
		t.Errorf("Find() = %+v, %v", steps, ok)
	}
	if _, ok := Find(jobs, "missing"); ok {
		t.Error("Find(missing) reported ok")
	}
}

func TestParsePrefixedContinuation(t *testing.T) {
	raw := "job\tstep\t2024-02-10T00:00:00.0000000Z first\nwrapped line\n"
	jobs := ParsePrefixed(raw)
	if len(jobs) != 1 || jobs[0].Steps[0].Text != "first\nwrapped line\n" {
		t.Errorf("ParsePrefixed() = %+v", jobs)
	}
}
