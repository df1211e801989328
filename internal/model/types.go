// Package model holds the persisted dataset types.
package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Manifest describes a mapped dataset: the slot layout every stored row
// follows and how many rows have been appended so far.
type Manifest struct {
	VersionedRecord
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	CreatedAt    time.Time         `json:"created_at"`
	FeatureNames []string          `json:"feature_names"`
	InputShape   []int             `json:"input_shape"`
	InputMask    bool              `json:"input_mask"`
	Outputs      []OutputShape     `json:"outputs"`
	Properties   map[string]string `json:"properties,omitempty"`
	NumRows      int               `json:"num_rows"`
}

type OutputShape struct {
	Name      string `json:"name"`
	NumLabels int    `json:"num_labels"`
	Virtual   bool   `json:"virtual,omitempty"`
}

// Row is one mapped record. Index is its position in the dataset.
type Row struct {
	VersionedRecord
	Index       int                  `json:"index"`
	ReferenceID string               `json:"reference_id,omitempty"`
	Position    int                  `json:"position"`
	Features    []float64            `json:"features"`
	Mask        []float64            `json:"mask,omitempty"`
	Labels      map[string][]float64 `json:"labels,omitempty"`
}
