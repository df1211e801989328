package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"genomap/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// NewManifest starts a dataset with a fresh random ID.
func NewManifest(name string) model.Manifest {
	return model.Manifest{
		VersionedRecord: currentVersion(),
		ID:              uuid.NewString(),
		Name:            name,
		CreatedAt:       time.Now().UTC(),
	}
}

func EncodeManifest(m model.Manifest) ([]byte, error) {
	return json.Marshal(m)
}

func DecodeManifest(data []byte) (model.Manifest, error) {
	var manifest model.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return model.Manifest{}, err
	}
	if err := checkVersion(manifest.VersionedRecord); err != nil {
		return model.Manifest{}, err
	}
	return manifest, nil
}

func EncodeRow(r model.Row) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRow(data []byte) (model.Row, error) {
	var row model.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return model.Row{}, err
	}
	if err := checkVersion(row.VersionedRecord); err != nil {
		return model.Row{}, err
	}
	return row, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// stamp numbers rows from start and sets their version.
func stamp(rows []model.Row, start int) []model.Row {
	out := make([]model.Row, len(rows))
	for i, r := range rows {
		r.VersionedRecord = currentVersion()
		r.Index = start + i
		out[i] = r
	}
	return out
}

// window clamps [offset, offset+limit) to n items. A non-positive limit
// selects everything after offset.
func window(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
