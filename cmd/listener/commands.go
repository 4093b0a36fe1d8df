package main

import (
	"github.com/spf13/cobra"
)

var (
	listStatus string
	listKind   string
	listLimit  int
	listOffset int

	rootCmd = &cobra.Command{
		Use:   "listener",
		Short: "Apply NetBox interface and IP address changes to devices over RESTCONF",
		Long: `listener receives NetBox webhooks for interfaces and IP addresses and
pushes the resulting configuration to IOS-XE devices over RESTCONF.
Configuration is read from the environment.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook listener",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in serve.go
	}

	replayCmd = &cobra.Command{
		Use:   "replay [event-id]",
		Short: "Run a journaled event again against current NetBox state",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay, // Defined in events.go
	}

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "List journaled events, newest first",
		Args:  cobra.NoArgs,
		RunE:  runEvents, // Defined in events.go
	}
)

func init() {
	eventsCmd.Flags().StringVar(&listStatus, "status", "", "only events with this status (pending, applied, skipped, failed, rejected)")
	eventsCmd.Flags().StringVar(&listKind, "kind", "", "only events of this kind (interface, address)")
	eventsCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum number of events")
	eventsCmd.Flags().IntVar(&listOffset, "offset", 0, "number of events to skip")

	rootCmd.AddCommand(serveCmd, replayCmd, eventsCmd)
}
