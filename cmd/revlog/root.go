package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/onexay/revwalk/internal/config"
	"github.com/onexay/revwalk/internal/service"
	"github.com/onexay/revwalk/internal/storage"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "revlog",
		Short:         "Walk commit history",
		Long:          "revlog lists the commits reachable from a set of revisions, newest first, with optional path, time and rename-following filters.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (YAML or TOML)")
	flags.String("backend", "", "storage backend: memory, keydb, bolt or git")
	flags.String("repo", "", "git repository path for the git backend")
	flags.String("db", "", "database path for the bolt backend")
	_ = viper.BindPFlag("storage.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("storage.git.path", flags.Lookup("repo"))
	_ = viper.BindPFlag("storage.bolt.path", flags.Lookup("db"))

	root.AddCommand(newLogCmd(), newImportCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	config.BindEnv()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func openRepository(cmd *cobra.Command) (storage.Repository, config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, err
	}
	repo, err := service.OpenStore(cfg.Storage)
	if err != nil {
		return nil, config.Config{}, err
	}
	return repo, cfg, nil
}
