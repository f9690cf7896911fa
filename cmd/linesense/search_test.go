// ABOUTME: Tests for one-shot search result shaping and printing.
// ABOUTME: Covers thresholds, context windows at the edges, and the text layout.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/2389-research/linesense/internal/models"
)

func sampleLines(texts ...string) []models.Line {
	lines := make([]models.Line, len(texts))
	for i, t := range texts {
		lines[i] = models.Line{Index: i, RawText: t}
	}
	return lines
}

func TestBuildHitsThreshold(t *testing.T) {
	lines := sampleLines("a", "b", "c")
	results := []models.SearchResult{
		{LineIndex: 2, Score: 0.9},
		{LineIndex: 0, Score: 0.4},
		{LineIndex: 1, Score: 0.1},
	}

	hits := buildHits(lines, results, 0.3, 0)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above threshold, got %+v", hits)
	}
	if hits[0].Line != 3 || hits[0].Text != "c" {
		t.Errorf("unexpected first hit %+v", hits[0])
	}
}

func TestBuildHitsContextClampedAtEdges(t *testing.T) {
	lines := sampleLines("one", "two", "three", "four")
	results := []models.SearchResult{
		{LineIndex: 0, Score: 0.8},
		{LineIndex: 3, Score: 0.7},
	}

	hits := buildHits(lines, results, -1, 2)
	if len(hits[0].Before) != 0 || strings.Join(hits[0].After, ",") != "two,three" {
		t.Errorf("unexpected context for first line: %+v", hits[0])
	}
	if strings.Join(hits[1].Before, ",") != "two,three" || len(hits[1].After) != 0 {
		t.Errorf("unexpected context for last line: %+v", hits[1])
	}
}

func TestPrintHits(t *testing.T) {
	var buf bytes.Buffer
	printHits(&buf, []searchHit{{LineIndex: 4, Line: 5, Score: 0.87654, Text: "getUserProfile"}})
	if got := buf.String(); got != "0.8765 | line 5 | getUserProfile\n" {
		t.Errorf("unexpected output %q", got)
	}

	buf.Reset()
	printHits(&buf, nil)
	if !strings.Contains(buf.String(), "No matching lines") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestPrintHitsWithContext(t *testing.T) {
	var buf bytes.Buffer
	printHits(&buf, []searchHit{{
		LineIndex: 2, Line: 3, Score: 0.5, Text: "three",
		Before: []string{"two"}, After: []string{"four"},
	}})
	want := "       | line 2 | two\n0.5000 | line 3 | three\n       | line 4 | four\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}
