package outwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/schema"
)

// WriteWatchUpdate prints one line for a reassessed test of the live feed.
func WriteWatchUpdate(w io.Writer, at time.Time, result schema.TestRiskResult, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		// One object per line
		return json.NewEncoder(w).Encode(result)
	}
	_, err := fmt.Fprintf(w, "%s %-*s %-8s cpk=%s sigma=%s p_oos=%s score=%3d %s\n",
		at.Format("15:04:05"),
		GetMaxTableNameWidth(cfg), contract.TruncateName(result.TestName, GetMaxTableNameWidth(cfg)),
		result.Station,
		fmtNum(result.Cpk, cfg.Precision),
		fmtNum(result.Sigma, cfg.Precision+1),
		fmtPercent(result.POut, cfg.Precision),
		result.Assessment.Score,
		levelLabel(result.Assessment.Level, cfg),
	)
	return err
}
