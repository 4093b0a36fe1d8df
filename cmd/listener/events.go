package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/spf13/cobra"
)

func runReplay(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	record, err := a.dispatcher.Replay(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("replaying %s: %w", args[0], err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return err
	}
	if record.Status == domain.StatusFailed || record.Status == domain.StatusRejected {
		return fmt.Errorf("replay %s ended %s", record.ID, record.Status)
	}
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.store.ListEvents(cmd.Context(), domain.EventFilter{
		Kind:   listKind,
		Status: listStatus,
		Limit:  listLimit,
		Offset: listOffset,
	})
	if err != nil {
		return fmt.Errorf("listing events: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECEIVED\tKIND\tEVENT\tOBJECT\tSTATUS\tOPS\tERROR")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			e.ID, e.ReceivedAt.Format("2006-01-02 15:04:05"), e.Kind, e.Event, e.ObjectID, e.Status, e.Operations, e.Error)
	}
	return w.Flush()
}
