package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"genomap/internal/model"
)

func testManifest(name string, created time.Time) model.Manifest {
	m := NewManifest(name)
	m.CreatedAt = created
	m.FeatureNames = []string{"a", "b"}
	m.InputShape = []int{2}
	m.Outputs = []model.OutputShape{{Name: "numDistinctAlleles", NumLabels: 3}}
	return m
}

func testRows(n int) []model.Row {
	rows := make([]model.Row, n)
	for i := range rows {
		rows[i] = model.Row{
			ReferenceID: "chr2",
			Position:    10 + i,
			Features:    []float64{float64(i), -1},
			Labels:      map[string][]float64{"numDistinctAlleles": {0, 1, 0}},
		}
	}
	return rows
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := testManifest("first", base)
	second := testManifest("second", base.Add(time.Minute))
	for _, m := range []model.Manifest{second, first} {
		if err := store.SaveManifest(ctx, m); err != nil {
			t.Fatalf("save manifest: %v", err)
		}
	}

	if _, err := store.AppendRows(ctx, "missing", testRows(1)); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got: %v", err)
	}
	if n, err := store.AppendRows(ctx, first.ID, testRows(3)); err != nil || n != 3 {
		t.Fatalf("append rows: n=%d err=%v", n, err)
	}
	if n, err := store.AppendRows(ctx, first.ID, testRows(2)); err != nil || n != 5 {
		t.Fatalf("append rows: n=%d err=%v", n, err)
	}

	// Saving the manifest again must not reset its row count.
	if err := store.SaveManifest(ctx, first); err != nil {
		t.Fatalf("resave manifest: %v", err)
	}
	loaded, ok, err := store.GetManifest(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("get manifest: ok=%v err=%v", ok, err)
	}
	if loaded.NumRows != 5 {
		t.Fatalf("unexpected row count: %d", loaded.NumRows)
	}
	if diff := cmp.Diff(first.FeatureNames, loaded.FeatureNames); diff != "" {
		t.Fatalf("feature names mismatch (-want +got):\n%s", diff)
	}
	if _, ok, err := store.GetManifest(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing manifest, ok=%v err=%v", ok, err)
	}

	list, err := store.ListManifests(ctx)
	if err != nil {
		t.Fatalf("list manifests: %v", err)
	}
	if len(list) != 2 || list[0].Name != "first" || list[1].Name != "second" {
		t.Fatalf("unexpected manifest order: %+v", list)
	}

	rows, err := store.GetRows(ctx, first.ID, 2, 2)
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 2 || rows[0].Index != 2 || rows[1].Index != 3 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1].Position != 10 || rows[1].Features[0] != 0 {
		t.Fatalf("second append should restart payload numbering: %+v", rows[1])
	}
	all, err := store.GetRows(ctx, first.ID, 0, 0)
	if err != nil || len(all) != 5 {
		t.Fatalf("get all rows: n=%d err=%v", len(all), err)
	}
	if tail, err := store.GetRows(ctx, first.ID, 10, 5); err != nil || len(tail) != 0 {
		t.Fatalf("get rows past end: n=%d err=%v", len(tail), err)
	}
	if _, err := store.GetRows(ctx, "missing", 0, 0); !errors.Is(err, ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got: %v", err)
	}
}
