package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type boardDump struct {
	Data struct {
		Boards []struct {
			Name    string `json:"name"`
			Columns []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"columns"`
			Groups []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"groups"`
			ItemsPage struct {
				Items []json.RawMessage `json:"items"`
			} `json:"items_page"`
		} `json:"boards"`
	} `json:"data"`
}

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Read the CRM board through the diagnostic endpoint",
	}

	var secret string
	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Dump board columns, groups and items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = viper.GetString("diagnostic_secret")
			}
			if secret == "" {
				return fmt.Errorf("no diagnostic secret: pass --secret or set diagnostic_secret")
			}

			raw, err := newAPIClient().BoardSnapshot(context.Background(), secret)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				var v interface{}
				if err := json.Unmarshal(raw, &v); err != nil {
					return fmt.Errorf("failed to parse board snapshot: %w", err)
				}
				return printOutput(cmd.OutOrStdout(), v)
			}

			var dump boardDump
			if err := json.Unmarshal(raw, &dump); err != nil {
				return fmt.Errorf("failed to parse board snapshot: %w", err)
			}
			if len(dump.Data.Boards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No board returned")
				return nil
			}

			board := dump.Data.Boards[0]
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Board: %s (%d items)\n\n", board.Name, len(board.ItemsPage.Items))

			groups := NewTable("GROUP ID", "TITLE")
			for _, g := range board.Groups {
				groups.AddRow(g.ID, g.Title)
			}
			if err := groups.Render(out); err != nil {
				return err
			}
			fmt.Fprintln(out)

			columns := NewTable("#", "COLUMN ID", "TITLE")
			for i, c := range board.Columns {
				columns.AddRow(strconv.Itoa(i+1), c.ID, c.Title)
			}
			return columns.Render(out)
		},
	}
	snapshot.Flags().StringVar(&secret, "secret", "", "diagnostic secret (default from config)")

	cmd.AddCommand(snapshot)
	return cmd
}
