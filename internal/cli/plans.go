package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/one39/enrollment/internal/api/dto"
	"github.com/one39/enrollment/internal/services"
)

func newPlansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect the plan catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every plan in the built-in price list",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := services.NewPlanCatalog()
			if err != nil {
				return err
			}

			defs := catalog.List()
			plans := make([]dto.PlanDTO, len(defs))
			for i, d := range defs {
				plans[i] = dto.ToPlanDTO(d)
			}

			if getOutputFormat() != "table" {
				return printOutput(cmd.OutOrStdout(), plans)
			}

			table := NewTable("ID", "LABEL", "AMOUNT", "SHAPE")
			for _, p := range plans {
				table.AddRow(p.ID, truncate(p.Label, 40), fmt.Sprintf("%.2f", p.Amount), p.Shape)
			}
			return table.Render(cmd.OutOrStdout())
		},
	})

	return cmd
}
