package main

import (
	"github.com/spf13/cobra"

	"github.com/proofstream/proofstream/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve receipts and verification reports over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("port") {
				port = a.cfg.Server.Port
			}
			srv := server.New(port, a.cfg.Receipts.Dir, a.logger)
			return srv.Start()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: configured)")
	return cmd
}
