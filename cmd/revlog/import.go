package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/onexay/revwalk/internal/fixture"
	"github.com/onexay/revwalk/internal/storage"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <graph.toml>",
		Short: "Load a commit graph description into a writable store",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	graph, err := fixture.Parse(data)
	if err != nil {
		return err
	}

	repo, cfg, err := openRepository(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()

	writer, ok := repo.(storage.Store)
	if !ok {
		return fmt.Errorf("storage backend %q is read-only", cfg.Storage.Backend)
	}
	ids, err := fixture.Load(cmd.Context(), writer, graph)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(ids))
	for name := range ids {
		names = append(names, name)
	}
	slices.Sort(names)
	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintf(out, "%s\t%s\n", name, ids[name])
	}
	return nil
}
