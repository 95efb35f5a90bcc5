package cmd

import (
	"github.com/huangsam/cpkwatch/core"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
	"github.com/spf13/cobra"
)

// assessCmd scores a hand-supplied input without talking to the backend.
var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score one set of capability numbers without fetching any data.",
	Long: `Run the risk engine on values given as flags.

Every value is optional. Blank, "null" and non-numeric values count as missing.

Examples:
  cpkwatch assess --cpk 1.2 --mean 3.7 --sigma 0.05 --lsl 3.5 --usl 3.9
  cpkwatch assess --cpk 1.4 --cpk-series "1.6,1.5,null,1.4" --sigma-max 0.04`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := core.ExecuteAssess(rootCtx, cfg, assessInput(cmd)); err != nil {
			contract.LogFatal("Cannot assess input", err)
		}
	},
}

// assessInput reads the assess flags into a RiskInput.
func assessInput(cmd *cobra.Command) schema.RiskInput {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return schema.RiskInput{
		Cpk:         schema.ParseFinite(get("cpk")),
		Mean:        schema.ParseFinite(get("mean")),
		Sigma:       schema.ParseFinite(get("sigma")),
		LSL:         schema.ParseFinite(get("lsl")),
		USL:         schema.ParseFinite(get("usl")),
		CpkSeries:   schema.ParseSeries(get("cpk-series")),
		SigmaSeries: schema.ParseSeries(get("sigma-series")),
	}
}
