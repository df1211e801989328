package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"genomap/internal/domain"
	"genomap/pkg/genomap"
)

func newDescribeCmd(g *globals) *cobra.Command {
	var (
		configPath string
		dump       bool
		names      bool
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the slot layout a domain config produces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			client, err := genomap.New(genomap.Options{StoreKind: "memory", Logger: g.logger})
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()
			desc, err := client.Describe(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dump {
				spew.Fdump(out, desc)
				return nil
			}
			fmt.Fprintf(out, "features=%s input_shape=%s input_mask=%t sort_counts=%t\n",
				humanize.Comma(int64(len(desc.FeatureNames))), desc.Shape.Input, desc.Shape.InputMask, desc.Shape.SortCounts)
			for _, o := range desc.Outputs {
				fmt.Fprintf(out, "output=%s labels=%d virtual=%t\n", o.Name, o.NumLabels, o.Virtual)
			}
			if names {
				for i, name := range desc.FeatureNames {
					fmt.Fprintf(out, "%d\t%s\n", i, name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "domain config YAML")
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the full description")
	cmd.Flags().BoolVar(&names, "names", false, "list every feature name")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newMapCmd(g *globals) *cobra.Command {
	var (
		configPath string
		inputPath  string
		name       string
		batchSize  int
	)
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map JSON-lines records into a new dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if batchSize <= 0 {
				return errors.New("batch must be > 0")
			}
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			input, closeInput, err := openInput(cmd, inputPath)
			if err != nil {
				return err
			}
			defer closeInput()

			client, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			summary, err := client.Map(cmd.Context(), genomap.MapRequest{
				Config:    cfg,
				Name:      name,
				Input:     input,
				BatchSize: batchSize,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dataset_id=%s rows=%s batches=%s store=%s\n",
				summary.DatasetID, humanize.Comma(int64(summary.Rows)), humanize.Comma(int64(summary.Batches)), g.storeKind)
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "domain config YAML")
	cmd.Flags().StringVar(&inputPath, "input", "-", "JSON-lines records file, - for stdin")
	cmd.Flags().StringVar(&name, "name", "", "dataset name")
	cmd.Flags().IntVar(&batchSize, "batch", 256, "records per batch")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newRowsCmd(g *globals) *cobra.Command {
	var (
		datasetID string
		offset    int
		limit     int
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print stored rows of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if offset < 0 {
				return errors.New("offset must be >= 0")
			}
			if limit <= 0 {
				return errors.New("limit must be > 0")
			}
			client, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			rows, err := client.Rows(cmd.Context(), genomap.RowsRequest{DatasetID: datasetID, Offset: offset, Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "no rows found")
				return nil
			}
			for _, r := range rows {
				fmt.Fprintf(out, "index=%d site=%s:%d features=%v mask=%v\n", r.Index, r.ReferenceID, r.Position, r.Features, r.Mask)
				for _, label := range slices.Sorted(maps.Keys(r.Labels)) {
					fmt.Fprintf(out, "  %s=%v\n", label, r.Labels[label])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetID, "dataset", "", "dataset id")
	cmd.Flags().IntVar(&offset, "offset", 0, "first row to print")
	cmd.Flags().IntVar(&limit, "limit", 10, "max rows to print")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit rows as JSON")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func newDatasetsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := g.openClient(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			manifests, err := client.Datasets(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(manifests) == 0 {
				fmt.Fprintln(out, "no datasets found")
				return nil
			}
			for _, m := range manifests {
				fmt.Fprintf(out, "dataset_id=%s name=%s rows=%s features=%d created=%s\n",
					m.ID, m.Name, humanize.Comma(int64(m.NumRows)), len(m.FeatureNames), humanize.Time(m.CreatedAt))
			}
			return nil
		},
	}
}

func loadConfig(path string) (domain.Config, error) {
	if path == "" {
		return domain.Config{}, errors.New("--config is required")
	}
	return domain.LoadConfig(path)
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
