package main

import (
	"github.com/spf13/cobra"

	"github.com/chrissnell/trailsense/internal/app"
	"github.com/chrissnell/trailsense/internal/log"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the altimeter, history recorder and REST server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := openProvider()
			if err != nil {
				return err
			}
			defer provider.Close()

			application := app.New(provider, log.GetSugaredLogger())
			if err := application.Run(cmd.Context()); err != nil {
				log.Errorf("Application error: %v", err)
				return err
			}
			return nil
		},
	}
}
