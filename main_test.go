package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunSolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzle.txt")
	if err := os.WriteFile(path, []byte(samplePuzzle+"NOPE\n"), 0o644); err != nil {
		t.Fatalf("write puzzle: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"solve", path}, envMap(nil), nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v (stderr: %s)", err, stderr.String())
	}

	want := "HELLO 0:0 4:4\nGOOD 4:0 4:3\nBYE 1:3 1:1\nNOPE not found\n"
	if got := stdout.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunSolveStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"solve", "-"}, envMap(nil), strings.NewReader("1x3\nC A T\nTAC\nCAT\n"), &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stdout.String(); got != "TAC 0:2 0:0\nCAT 0:0 0:2\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		code int
	}{
		{"no command", nil, nil, 2},
		{"unknown command", []string{"dance"}, nil, 2},
		{"solve without file", []string{"solve"}, nil, 2},
		{"bad flag", []string{"-nope", "solve", "x"}, nil, 2},
		{"bad log level", []string{"-log-level", "loud", "solve", "x"}, nil, 2},
		{"bad env log level", []string{"solve", "x"}, map[string]string{"LOG_LEVEL": "loud"}, 2},
		{"bad env port", []string{"solve", "x"}, map[string]string{"PORT": "eighty"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, envMap(tt.env), nil, &stdout, &stderr)
			var exitErr *ExitError
			if !errors.As(err, &exitErr) || exitErr.Code != tt.code {
				t.Fatalf("expected exit code %d, got %v", tt.code, err)
			}
		})
	}
}

func TestRunSolveBadPuzzle(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"solve", "-"}, envMap(nil), strings.NewReader("2x2\nA B\n"), &stdout, &stderr)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	err = run(context.Background(), []string{"solve", filepath.Join(t.TempDir(), "missing.txt")}, envMap(nil), nil, &stdout, &stderr)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-h"}, envMap(nil), nil, &stdout, &stderr); err != nil {
		t.Fatalf("help should not fail: %v", err)
	}
	if !strings.Contains(stderr.String(), "wordsearch [options] solve FILE") {
		t.Fatalf("usage not printed: %q", stderr.String())
	}
}
