package domain

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Diagram is a stored BPMN document. XML is opaque and kept byte-for-byte.
type Diagram struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	XML       string    `json:"xml"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiagramSummary is the listing view of a diagram, without its XML.
type DiagramSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiagramRepository is the port for diagram persistence. Every method except
// DiagramExists is scoped by owner. Methods returning int64 report rows affected.
type DiagramRepository interface {
	CreateDiagram(ctx context.Context, userID int64, name, xml string, now time.Time) (int64, error)
	UpdateDiagram(ctx context.Context, userID, id int64, name, xml string, now time.Time) (int64, error)
	OwnsDiagram(ctx context.Context, userID, id int64) (bool, error)
	DiagramExists(ctx context.Context, id int64) (bool, error)
	GetDiagram(ctx context.Context, userID, id int64) (*Diagram, error)
	ListDiagrams(ctx context.Context, userID int64) ([]DiagramSummary, error)
	RenameDiagram(ctx context.Context, userID, id int64, name string, now time.Time) (int64, error)
	DeleteDiagram(ctx context.Context, userID, id int64) (int64, error)
}

// SaveMode selects between updating the diagram being edited and creating a copy.
type SaveMode string

const (
	// SaveModeSave updates the referenced diagram, or creates one when no id is given.
	SaveModeSave SaveMode = "save"
	// SaveModeSaveAs always creates a new diagram.
	SaveModeSaveAs SaveMode = "save_as"
)

// ParseSaveMode maps a raw request value to a SaveMode. The editor client
// sends "saveAs"; anything unrecognised is treated as a plain save.
func ParseSaveMode(raw string) SaveMode {
	switch strings.TrimSpace(raw) {
	case "save_as", "saveAs":
		return SaveModeSaveAs
	default:
		return SaveModeSave
	}
}

// ParseDiagramID normalises an untyped id. A nil, blank or non-integer value
// yields nil, meaning "no identity".
func ParseDiagramID(raw *string) *int64 {
	if raw == nil {
		return nil
	}
	v := strings.TrimSpace(*raw)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// SaveRequest is a normalised save of a diagram.
type SaveRequest struct {
	Name string
	XML  string
	ID   *int64
	Mode SaveMode
}

// Target returns the identity the save should update, or nil when the save
// must create a new diagram. Save-as never targets an existing row.
func (r SaveRequest) Target() *int64 {
	if r.Mode == SaveModeSaveAs {
		return nil
	}
	return r.ID
}

// SaveResult reports the diagram a save landed on.
type SaveResult struct {
	ID      int64 `json:"id"`
	Created bool  `json:"created"`
}
