package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/one39/enrollment/internal/config"
	"github.com/one39/enrollment/internal/domain/billing"
	"github.com/one39/enrollment/internal/domain/plan"
	"github.com/one39/enrollment/internal/services"
)

// scheduleView is the printable form of a billing schedule
type scheduleView struct {
	Plan     string       `json:"plan" yaml:"plan"`
	Shape    string       `json:"shape" yaml:"shape"`
	At       string       `json:"at" yaml:"at"`
	CancelAt string       `json:"cancelAt" yaml:"cancelAt"`
	Closed   bool         `json:"closed" yaml:"closed"`
	Anchors  []anchorView `json:"anchors,omitempty" yaml:"anchors,omitempty"`
}

type anchorView struct {
	At         string `json:"at" yaml:"at"`
	BillingDay string `json:"billingDay" yaml:"billingDay"`
}

func newScheduleCmd() *cobra.Command {
	var (
		planID string
		at     string
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview the cancellation date and billing anchors for a plan",
		Example: `  enroll schedule --plan semi-monthly --at 2026-04-20
  enroll schedule --plan monthly -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := parseAt(at)
			if err != nil {
				return err
			}

			catalog, err := services.NewPlanCatalog()
			if err != nil {
				return err
			}
			def, err := catalog.Resolve(planID)
			if err != nil {
				return err
			}

			ceiling, err := cancelCeiling()
			if err != nil {
				return err
			}

			calendar := services.NewBillingCalendar(viper.GetBool("billing.clamp_ceiling"), ceiling)
			view := newScheduleView(def.ID, string(def.Shape), now, calendar.Schedule(def.Shape, now))

			if getOutputFormat() != "table" {
				return printOutput(cmd.OutOrStdout(), view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan:       %s (%s)\n", view.Plan, view.Shape)
			fmt.Fprintf(out, "Enrolled:   %s\n", view.At)
			fmt.Fprintf(out, "Cancels at: %s\n", view.CancelAt)
			if view.Closed {
				fmt.Fprintln(out, "Status:     enrollment closed")
			}
			if len(view.Anchors) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			table := NewTable("ANCHOR", "BILLING DAY")
			for _, a := range view.Anchors {
				table.AddRow(a.At, a.BillingDay)
			}
			return table.Render(out)
		},
	}

	cmd.Flags().StringVar(&planID, "plan", "", "plan id (see 'enroll plans list')")
	cmd.Flags().StringVar(&at, "at", "", "enrollment instant, RFC3339 or YYYY-MM-DD (default now)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func newScheduleView(planID, shape string, now time.Time, s billing.Schedule) scheduleView {
	view := scheduleView{
		Plan:     planID,
		Shape:    shape,
		At:       now.UTC().Format(time.RFC3339),
		CancelAt: time.Unix(s.CancelAt, 0).UTC().Format(time.RFC3339),
		Closed:   services.EnrollmentClosed(plan.BillingShape(shape), s, now),
	}
	for _, a := range s.Anchors {
		view.Anchors = append(view.Anchors, anchorView{
			At:         a.At.UTC().Format(time.RFC3339),
			BillingDay: a.DayTag,
		})
	}
	return view
}

func parseAt(at string) (time.Time, error) {
	if at == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, at); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", at)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: use RFC3339 or YYYY-MM-DD", at)
	}
	return t, nil
}

func cancelCeiling() (time.Time, error) {
	raw := viper.GetString("billing.cancel_ceiling")
	if raw == "" {
		return config.DefaultCancelCeiling, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("billing.cancel_ceiling must be RFC3339: %w", err)
	}
	return t.UTC(), nil
}
