package logs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
}

func TestTailReturnsLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamwatch.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\nfive\n")

	result, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 3})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	want := []string{"three", "four", "five"}
	if len(result.Lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(result.Lines), result.Lines)
	}
	for i, line := range want {
		if result.Lines[i] != line {
			t.Fatalf("line %d = %q, want %q", i, result.Lines[i], line)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat log file: %v", err)
	}
	if result.Offset != info.Size() {
		t.Fatalf("offset = %d, want file size %d", result.Offset, info.Size())
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamwatch.log")
	writeLog(t, path, "first\nsecond\n")

	initial, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	if _, err := file.WriteString("third\nfourth\n"); err != nil {
		t.Fatalf("append log lines: %v", err)
	}
	file.Close()

	result, err := Tail(context.Background(), path, TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "third" || result.Lines[1] != "fourth" {
		t.Fatalf("expected the appended lines, got %v", result.Lines)
	}
	if result.Offset <= initial.Offset {
		t.Fatalf("offset did not advance: %d -> %d", initial.Offset, result.Offset)
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")

	result, err := Tail(context.Background(), path, TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %v", result.Lines)
	}
	if result.Offset != 0 {
		t.Fatalf("offset = %d, want 0", result.Offset)
	}
}

func TestTailOffsetBeyondFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamwatch.log")
	writeLog(t, path, "only\n")

	result, err := Tail(context.Background(), path, TailOptions{Offset: 9999})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines, got %v", result.Lines)
	}
	if result.Offset != 5 {
		t.Fatalf("offset = %d, want clamped file size 5", result.Offset)
	}
}

func TestTailFollowWaitsForLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamwatch.log")
	writeLog(t, path, "")

	go func() {
		time.Sleep(400 * time.Millisecond)
		file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer file.Close()
		file.WriteString("arrived\n")
	}()

	result, err := Tail(context.Background(), path, TailOptions{Offset: 0, Follow: true, Wait: 5 * time.Second})
	if err != nil {
		t.Fatalf("Tail returned error: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "arrived" {
		t.Fatalf("expected the appended line, got %v", result.Lines)
	}
}

func TestTailFollowStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamwatch.log")
	writeLog(t, path, "")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := Tail(ctx, path, TailOptions{Offset: 0, Follow: true, Wait: time.Minute})
	if err == nil {
		t.Fatal("expected context error after cancel")
	}
}
