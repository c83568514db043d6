package main

import (
	"bytes"
	"image/png"
	"testing"
)

func TestRenderSnapshotEncodes(t *testing.T) {
	entries := []RankedEntry{
		{Position: 1, ID: "a", Name: "Ana", Points: 12},
		{Position: 2, ID: "b", Name: "Ben", Points: 7},
		{Position: 3, ID: "c", Name: "Cleo", Points: 0},
	}

	img := renderSnapshot("Student Rankings", entries, "a")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png decode failed: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != snapshotWidth {
		t.Fatalf("expected width %d, got %d", snapshotWidth, bounds.Dx())
	}
	wantHeight := snapshotHeaderH + len(entries)*snapshotRowHeight + snapshotMargin
	if bounds.Dy() != wantHeight {
		t.Fatalf("expected height %d, got %d", wantHeight, bounds.Dy())
	}
}

func TestRenderSnapshotEmptyBoard(t *testing.T) {
	img := renderSnapshot("Student Rankings", nil, "")

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
}

func TestSnapshotFilename(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Student Rankings", "student-rankings-snapshot.png"},
		{"  Student Rankings  ", "student-rankings-snapshot.png"},
		{"Embedded EG #7", "embedded-eg-7-snapshot.png"},
		{"???", "board-snapshot.png"},
		{"", "board-snapshot.png"},
	}

	for _, c := range cases {
		if got := snapshotFilename(c.title); got != c.want {
			t.Fatalf("snapshotFilename(%q) = %q, want %q", c.title, got, c.want)
		}
	}
}
