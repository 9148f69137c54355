package main

import (
	"fmt"
	"net"

	"github.com/dailyyoga/cacheorch/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cachehost",
		Short:         "Keep caches warm and report their health",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration file")

	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func configFrom(cmd *cobra.Command) (*Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return loadConfig(path)
}

func newRunCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the orchestrator and the health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Health.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logger.New(cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ln, err := net.Listen("tcp", cfg.Health.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Health.Addr, err)
			}
			return serve(cmd.Context(), cfg, log, ln)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Health endpoint address, overrides health.addr")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the cache graph without connecting to any backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			h := &host{cfg: cfg, log: logger.NewNop()}
			o, err := h.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			for _, s := range o.Snapshots() {
				state := "enabled"
				if !s.Enabled {
					state = "disabled"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", s.Name, state)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
}
