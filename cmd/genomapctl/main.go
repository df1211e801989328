package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"genomap/internal/logging"
	"genomap/internal/storage"
	"genomap/pkg/genomap"
)

const defaultDBPath = "genomap.db"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	verbose   bool
	storeKind string
	dbPath    string
	workers   int

	logger *zap.Logger
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	root := newRootCmd(&globals{})
	root.SetArgs(args)
	root.SetOut(stdout)
	return root.ExecuteContext(ctx)
}

func newRootCmd(g *globals) *cobra.Command {
	root := &cobra.Command{
		Use:           "genomapctl",
		Short:         "Map genomic site records into feature and label rows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(g.verbose)
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&g.storeKind, "store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	root.PersistentFlags().StringVar(&g.dbPath, "db-path", defaultDBPath, "sqlite database path")
	root.PersistentFlags().IntVar(&g.workers, "workers", 0, "mapping workers (default: number of CPUs)")

	root.AddCommand(
		newDescribeCmd(g),
		newMapCmd(g),
		newRowsCmd(g),
		newDatasetsCmd(g),
	)
	return root
}

// openClient creates and initializes a client from the global flags. The
// caller closes it.
func (g *globals) openClient(ctx context.Context) (*genomap.Client, error) {
	client, err := genomap.New(genomap.Options{
		StoreKind: g.storeKind,
		DBPath:    g.dbPath,
		Workers:   g.workers,
		Logger:    g.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
