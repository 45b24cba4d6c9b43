package ingest

import (
	"fmt"
	"log/slog"
	"strings"

	readability "codeberg.org/readeck/go-readability"
)

// Extractor pulls a readable plain-text description out of a video page
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Run extracts the readable text of an HTML document. Entries in YouTube
// feeds often carry no description, so the recipe steps are recovered from
// the linked page instead.
func (e *Extractor) Run(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract description: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no description extracted from HTML data")
	}

	slog.Debug("Description extracted successfully",
		"title", article.Title,
		"length", len(text))

	return text, nil
}
