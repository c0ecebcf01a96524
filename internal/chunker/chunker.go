package chunker

import (
	"fmt"

	"pdf-chat/internal/models"
)

// Chunker tiles text into fixed-size windows that overlap by a fixed amount.
type Chunker struct {
	Size    int
	Overlap int
}

// New validates size and overlap and returns a Chunker.
func New(size, overlap int) (*Chunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{Size: size, Overlap: overlap}, nil
}

// Chunk splits text into windows of c.Size characters, each starting
// c.Size-c.Overlap characters after the previous one. The last window may be shorter.
func (c *Chunker) Chunk(text string) ([]string, error) {
	return Chunk(text, c.Size, c.Overlap)
}

// ChunkDocuments chunks each text independently and concatenates the results
// in document order.
func (c *Chunker) ChunkDocuments(texts []string) ([]string, error) {
	var chunks []string
	for _, text := range texts {
		docChunks, err := c.Chunk(text)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks, nil
}

// Chunk is the window tiling behind Chunker. Sizes count runes, so a
// multibyte character is never split. Boundaries ignore words and sentences. Empty text yields no chunks.
func Chunk(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", models.ErrConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)", models.ErrConfiguration, overlap, size)
	}
	return nil
}
