// Package backup exports the whole store as one JSON document and ships it to Google Drive.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/2beens/fittrack/internal/fitness"
)

const FormatVersion = 1

type Document struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Snapshot   *fitness.Snapshot  `json:"snapshot"`
	Activities []fitness.Activity `json:"activities"`
}

type source interface {
	Snapshot(ctx context.Context) (*fitness.Snapshot, error)
	ListActivities(ctx context.Context) ([]fitness.Activity, error)
}

// Collect reads everything the store holds into a backup document.
func Collect(ctx context.Context, src source, exportedAt time.Time) (*Document, error) {
	snapshot, err := src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	activities, err := src.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if activities == nil {
		activities = []fitness.Activity{}
	}

	return &Document{
		Version:    FormatVersion,
		ExportedAt: exportedAt.UTC(),
		Snapshot:   snapshot,
		Activities: activities,
	}, nil
}

// Export writes the document as indented JSON.
func Export(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// Read parses a document written by Export.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported backup version: %d", doc.Version)
	}
	if doc.Snapshot == nil {
		return nil, fmt.Errorf("backup has no snapshot")
	}
	doc.Snapshot.Reconcile()
	return &doc, nil
}

func FileName(t time.Time) string {
	return fmt.Sprintf("fittrack-%s.json", t.UTC().Format("20060102-150405"))
}
