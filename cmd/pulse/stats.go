package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/metrics"
	"go.klb.dev/pulse/internal/statusbar"
)

func newStatsCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the current system metrics",
		Long: `Prints CPU, memory, disk and network figures as the agent sees them.

Pass --local to sample this machine directly instead of asking the agent.
Network rates need two samples, so --local waits one interval before
printing.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStats(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("local", false, "sample locally instead of asking the agent")
	f.Bool("json", false, "output raw JSON")
	addAgentFlags(cmd)

	return cmd
}

func runStats(cmd *cobra.Command, v *viper.Viper) error {
	setupQuietLogging(v)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		st  metrics.Stats
		err error
	)
	if v.GetBool("local") {
		st, err = sampleLocal(ctx)
	} else {
		c, _, derr := dialAgent(cmd, v)
		if derr != nil {
			return derr
		}
		defer c.Close()
		st, err = c.Stats(ctx)
	}
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CPU\t%.1f%%\n", st.CPUUsage)
	fmt.Fprintf(w, "MEMORY\t%s / %s\n", humanBytes(st.MemoryUsed), humanBytes(st.MemoryTotal))
	fmt.Fprintf(w, "DISK\t%d%%\n", st.DiskUsagePercent)
	fmt.Fprintf(w, "NET UP\t%s\n", statusbar.FormatSpeed(st.NetworkSpeedUp))
	fmt.Fprintf(w, "NET DOWN\t%s\n", statusbar.FormatSpeed(st.NetworkSpeedDown))
	fmt.Fprintf(w, "LABEL\t%s\n", statusbar.Compose(statusbar.Segments(st)).Text)
	return w.Flush()
}

// sampleLocal primes the sampler, waits an interval and samples again so
// the network rates are meaningful.
func sampleLocal(ctx context.Context) (metrics.Stats, error) {
	s := metrics.NewSampler()
	if _, err := s.Sample(ctx); err != nil {
		return metrics.Stats{}, err
	}
	select {
	case <-ctx.Done():
		return metrics.Stats{}, ctx.Err()
	case <-time.After(metrics.DefaultInterval):
	}
	return s.Sample(ctx)
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
