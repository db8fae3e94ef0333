// Package cli provides CLI output utilities for Sera.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/seradocs/sera/internal/models"
	"github.com/seradocs/sera/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteQueryResponse writes a query response to w in the given format.
func WriteQueryResponse(w io.Writer, response *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	writeQueryResponseText(w, response)
	return nil
}

func writeQueryResponseText(w io.Writer, response *models.QueryResponse) {
	if response.Answer != nil {
		fmt.Fprintf(w, "\n%s\n", *response.Answer)
	} else {
		fmt.Fprintln(w, "\n(no answer generated)")
	}
	if len(response.Sources) == 0 {
		fmt.Fprintln(w, "\nNo sources found.")
		return
	}
	fmt.Fprintf(w, "\nSources (%d):\n", len(response.Sources))
	for i, src := range response.Sources {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s | chunk %d | score %.4f\n",
			i+1, src.Metadata.Filename, src.Metadata.ChunkIndex, src.SimilarityScore)
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(src.Content, 200))
	}
	fmt.Fprintln(w)
}

// WriteDocuments writes a document listing to w in the given format.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, doc := range docs {
		fmt.Fprintf(w, "%s  %s  %s\n", doc.ID, doc.CreatedAt.Format("2006-01-02 15:04"), doc.Filename)
	}
	return nil
}
