package cmd

import (
	"fmt"
	"net"

	"github.com/lehigh-university-libraries/magma/internal/fileserver"
	"github.com/spf13/cobra"
)

func newStaticCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "static [dir]",
		Short: "Serve a directory over HTTP",
		Long: `Serves a directory of files, for example test pages for the automate
command. When the requested port is taken, the first free port from 8000
upward is used instead.`,
		Example: `  magma static ./pages
  magma static --port 9000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			return fileserver.Serve(cmd.Context(), dir, port, func(addr string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://localhost:%s/\n", dir, portOf(addr))
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", fileserver.DefaultPort, "Port to listen on (0 picks a free port)")

	return cmd
}

func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return port
}
