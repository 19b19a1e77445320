package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/vigil/internal/conf"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/replay"
)

const clockFormat = "15:04:05.000"

func replayCommand(c *cli) *cobra.Command {
	var (
		calibrate bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "replay <frames.jsonl>",
		Short: "Replay recorded face landmarks through a fatigue session",
		Long: `Replay feeds recorded landmark frames, one JSON object per line, through a
fatigue session timed by the recorded timestamps. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			out := cmd.OutOrStdout()
			cfg := sessionConfig(c.settings.Detection)
			if !asJSON {
				cfg.Observer = &printer{w: out}
			}
			cfg.Logger = c.logger

			summary, err := replay.Run(cmd.Context(), in, replay.Options{
				Session:   cfg,
				Calibrate: calibrate,
				Logger:    c.logger,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			printSummary(out, summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&calibrate, "calibrate", false, "Calibrate the eye threshold from the first 15 seconds")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print only the summary, as JSON")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(path)
}

func sessionConfig(s conf.DetectionSettings) fatigue.Config {
	cfg := fatigue.DefaultConfig()
	cfg.Parameters = fatigue.Parameters{
		EARThreshold:          s.EARThreshold,
		MARThreshold:          s.MARThreshold,
		FatigueEventThreshold: s.FatigueEventThreshold,
	}
	return cfg
}

// printer writes each notification as one line.
type printer struct {
	fatigue.NopObserver
	w io.Writer
}

func (p *printer) OnCalibrationStarted() {
	fmt.Fprintln(p.w, "calibration started")
}

func (p *printer) OnCalibrationCompleted(r fatigue.CalibrationResult) {
	fmt.Fprintf(p.w, "calibration completed: threshold=%.3f avg=%.3f min=%.3f max=%.3f samples=%d\n",
		r.Threshold, r.Avg, r.Min, r.Max, r.Samples)
}

func (p *printer) OnFatigueDetected(r fatigue.Result) {
	for _, e := range r.Events {
		fmt.Fprintf(p.w, "%s  %s\n", r.Timestamp.Format(clockFormat), describe(e))
	}
}

func (p *printer) OnFatigueLevelChanged(l fatigue.Level) {
	fmt.Fprintf(p.w, "              level -> %s\n", l)
}

func describe(e fatigue.Event) string {
	switch v := e.(type) {
	case fatigue.EyeClosure:
		return fmt.Sprintf("eye_closure duration=%s", v.Duration)
	case fatigue.Yawn:
		return fmt.Sprintf("yawn duration=%s", v.Duration)
	case fatigue.HighBlinkFrequency:
		return fmt.Sprintf("high_blink_frequency count=%d", v.Count)
	default:
		return e.Kind().String()
	}
}

func printSummary(w io.Writer, s replay.Summary) {
	fmt.Fprintln(w, "--")
	fmt.Fprintf(w, "frames:      %d (%d with a face) over %s\n", s.Frames, s.FaceFrames, s.Duration().Round(time.Millisecond))

	kinds := make([]string, 0, len(s.Events))
	for k := range s.Events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, s.Events[k]))
	}
	if len(parts) == 0 {
		parts = append(parts, "none")
	}
	fmt.Fprintf(w, "events:      %s\n", strings.Join(parts, " "))
	fmt.Fprintf(w, "blinks:      %d\n", s.Final.BlinkCount)
	fmt.Fprintf(w, "peak level:  %s\n", s.PeakLevel)
	fmt.Fprintf(w, "final level: %s\n", s.Final.Level)
	fmt.Fprintf(w, "ear threshold: %.3f\n", s.Final.Parameters.EARThreshold)
}
