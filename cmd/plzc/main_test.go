package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRunHelpPrintsToStdoutAndExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-h"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "Usage: plzc") {
		t.Errorf("stdout = %q, want it to contain usage text", stdout.String())
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want empty", stderr.String())
	}
}

func TestRunUnknownFlagPrintsToStderrAndExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--nope"}, &stdout, &stderr)

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", stdout.String())
	}
}

func TestRunMissingInputExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{}, &stdout, &stderr)

	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunNonexistentInputExitsOne(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--no-cache", "/nonexistent/does-not-exist.pz"}, &stdout, &stderr)

	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "plzc:") {
		t.Errorf("stderr = %q, want it to contain %q", stderr.String(), "plzc:")
	}
}
