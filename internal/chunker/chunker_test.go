package chunker

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"pdf-chat/internal/models"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{"empty", "", 4, 1, nil},
		{"shorter than size", "abc", 10, 2, []string{"abc"}},
		{"exact tiling", "AAAA", 2, 0, []string{"AA", "AA"}},
		{"overlap", "abcdefg", 4, 2, []string{"abcd", "cdef", "efg", "g"}},
		{"short tail", "abcde", 3, 1, []string{"abc", "cde", "e"}},
		{"multibyte", "café naïve résumé", 4, 0, []string{"café", " naï", "ve r", "ésum", "é"}},
		{"multibyte overlap", "äöüß", 3, 1, []string{"äöü", "üß"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Chunk(tt.text, tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("Chunk: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkRejectsInvalidOverlap(t *testing.T) {
	for _, tc := range [][2]int{{5, 5}, {5, 7}, {0, 0}, {5, -1}} {
		_, err := Chunk("some text", tc[0], tc[1])
		if !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("size=%d overlap=%d: expected ErrConfiguration, got %v", tc[0], tc[1], err)
		}
	}
	if _, err := New(3, 3); !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("New: expected ErrConfiguration, got %v", err)
	}
}

func TestChunkReconstructsText(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	for _, tc := range [][2]int{{1, 0}, {7, 3}, {100, 20}, {1000, 200}, {64, 63}} {
		size, overlap := tc[0], tc[1]
		chunks, err := Chunk(text, size, overlap)
		if err != nil {
			t.Fatalf("Chunk(%d, %d): %v", size, overlap, err)
		}

		var b strings.Builder
		b.WriteString(chunks[0])
		for _, c := range chunks[1:] {
			if len(c) > overlap {
				b.WriteString(c[overlap:])
			}
		}
		rebuilt := b.String()
		if !strings.HasPrefix(text, rebuilt) {
			t.Fatalf("size=%d overlap=%d: rebuilt text is not a prefix", size, overlap)
		}

		step := size - overlap
		last := len(chunks) - 1
		if end := last*step + len(chunks[last]); end != len(text) {
			t.Fatalf("size=%d overlap=%d: last chunk ends at %d, want %d", size, overlap, end, len(text))
		}
		for i, c := range chunks {
			if len(c) > size {
				t.Fatalf("chunk %d longer than size", i)
			}
		}
	}
}

func TestChunkDocumentsKeepsDocumentOrder(t *testing.T) {
	c, err := New(2, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.ChunkDocuments([]string{"AAAA", "BBBB"})
	if err != nil {
		t.Fatalf("ChunkDocuments: %v", err)
	}
	want := []string{"AA", "AA", "BB", "BB"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestChunkKeepsCharactersWhole(t *testing.T) {
	text := strings.Repeat("naïve “quoted” résumé, ", 30)
	for _, tc := range [][2]int{{1, 0}, {4, 0}, {7, 3}, {50, 10}} {
		chunks, err := Chunk(text, tc[0], tc[1])
		if err != nil {
			t.Fatalf("Chunk(%d, %d): %v", tc[0], tc[1], err)
		}
		for i, c := range chunks {
			if !utf8.ValidString(c) {
				t.Fatalf("size=%d overlap=%d: chunk %d is not valid UTF-8: %q", tc[0], tc[1], i, c)
			}
			if n := utf8.RuneCountInString(c); n > tc[0] {
				t.Fatalf("size=%d overlap=%d: chunk %d has %d characters", tc[0], tc[1], i, n)
			}
		}
	}
}
