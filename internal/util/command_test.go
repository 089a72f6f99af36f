package util

import (
	"errors"
	"testing"
)

func TestMockCommandRunner_ExpectAndRecord(t *testing.T) {
	mock := NewMockCommandRunner()
	mock.ExpectSuccess("rsync -a /a/ /b/", []byte("done"))

	out, err := mock.Run("rsync", "-a", "/a/", "/b/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "done" {
		t.Errorf("output = %q, want %q", out, "done")
	}

	mock.AssertCalled(t, "rsync -a /a/ /b/")
	if mock.CallCount("rsync -a /a/ /b/") != 1 {
		t.Errorf("call count = %d, want 1", mock.CallCount("rsync -a /a/ /b/"))
	}
}

func TestMockCommandRunner_UnexpectedCommandFails(t *testing.T) {
	mock := NewMockCommandRunner()
	if _, err := mock.Run("rm", "-rf", "/"); err == nil {
		t.Fatal("expected error for unexpected command")
	}
}

func TestMockCommandRunner_ExpectFailure(t *testing.T) {
	wantErr := errors.New("exit status 23")
	mock := NewMockCommandRunner()
	mock.ExpectFailure("rsync -a /a/ /b/", wantErr)

	_, err := mock.Run("rsync", "-a", "/a/", "/b/")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
}

func TestContextCommandRunner_Run(t *testing.T) {
	runner := NewCommandRunner()
	out, err := runner.Run("sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("output = %q, want %q", out, "hello\n")
	}
}

func TestContextCommandRunner_RunQuiet(t *testing.T) {
	runner := NewCommandRunner()

	out, err := runner.RunQuiet("sh", "-c", "echo quiet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("output on success should be empty, got %q", out)
	}

	out, err = runner.RunQuiet("sh", "-c", "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("expected error for failing command")
	}
	if out != "oops\n" {
		t.Errorf("output on failure = %q, want %q", out, "oops\n")
	}
}
