package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
}

func TestRunSuccess(t *testing.T) {
	requireBinary(t, "echo")
	res, err := ExecRunner{}.Run(context.Background(), "echo", []string{"hello"}, time.Second*5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", res.Stdout)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	requireBinary(t, "sh")
	res, err := ExecRunner{}.Run(context.Background(), "sh", []string{"-c", "echo oops >&2; exit 3"}, time.Second*5)
	if err != nil {
		t.Fatalf("expected nil error for non-zero exit, got %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if strings.TrimSpace(string(res.Stderr)) != "oops" {
		t.Errorf("expected stderr 'oops', got %q", res.Stderr)
	}
}

func TestRunNotFound(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "nonexistentcommand12345", nil, time.Second)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if res.ExitCode != 127 {
		t.Errorf("expected exit code 127, got %d", res.ExitCode)
	}
}

func TestRunTimeout(t *testing.T) {
	requireBinary(t, "sleep")
	res, err := ExecRunner{}.Run(context.Background(), "sleep", []string{"2"}, 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if res.ExitCode != 124 {
		t.Errorf("expected exit code 124, got %d", res.ExitCode)
	}
}
