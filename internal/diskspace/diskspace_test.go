package diskspace

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpace_SmallRequest(t *testing.T) {
	target := filepath.Join(t.TempDir(), "photo.jpg")
	if err := CheckAvailableSpace(target, 1024, 1.1); err != nil {
		t.Errorf("1 KiB request on a fresh temp dir failed: %v", err)
	}
}

func TestCheckAvailableSpace_HugeRequest(t *testing.T) {
	target := filepath.Join(t.TempDir(), "photo.jpg")
	// An exbibyte cannot fit anywhere this test runs.
	err := CheckAvailableSpace(target, 1<<60, 1.0)
	if err == nil {
		t.Skip("filesystem reports no usable statistics")
	}
	if !IsInsufficientSpaceError(err) {
		t.Fatalf("expected InsufficientSpaceError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "insufficient disk space") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestCheckAvailableSpace_MissingDirectory(t *testing.T) {
	// Unstatable locations are allowed through; the write fails naturally.
	if err := CheckAvailableSpace("/definitely/not/a/real/dir/photo.jpg", 1024, 1.1); err != nil {
		t.Errorf("unstatable path should not error, got %v", err)
	}
}

func TestInsufficientSpaceError_Message(t *testing.T) {
	err := &InsufficientSpaceError{
		Path:           "/cache/photo.jpg",
		RequiredBytes:  10 * 1024 * 1024,
		AvailableBytes: 2 * 1024 * 1024,
	}
	msg := err.Error()
	for _, want := range []string{"/cache/photo.jpg", "10.00 MB", "2.00 MB"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestGetAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "probe")
	if got := GetAvailableSpace(target); got < 0 {
		t.Errorf("available space = %d, want >= 0", got)
	}
}

func ExampleInsufficientSpaceError() {
	err := &InsufficientSpaceError{Path: "x", RequiredBytes: 1 << 21, AvailableBytes: 1 << 20}
	fmt.Println(IsInsufficientSpaceError(err))
	// Output: true
}
