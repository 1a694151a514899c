package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"remedy/internal/bootstrap/logging"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Remediation plan commands",
}

var planImportCmd = newPlanImportCmd(nil)

func newPlanImportCmd(svc *remediation.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import jobs and proposed actions from a TOML plan file",
		RunE: serviceRunE(svc, func(cmd *cobra.Command, svc *remediation.Service) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			file, _ := cmd.Flags().GetString("file")
			asJSON, _ := cmd.Flags().GetBool("json")

			plan, err := remediation.LoadPlanFile(file)
			if err != nil {
				return err
			}
			result, err := svc.ImportPlan(ctx, plan)
			if err != nil {
				logging.Error(ctx, "import plan failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "import plan")
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			if _, err := fmt.Fprintf(
				cmd.OutOrStdout(),
				"plan imported: jobs=%s actions=%d\n",
				strings.Join(result.JobIDs, ","),
				result.ActionCount,
			); err != nil {
				return errs.Wrap(err, "write plan import output")
			}
			return nil
		}),
	}

	cmd.Flags().String("file", "", "Path to the plan TOML file")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planImportCmd)
}
