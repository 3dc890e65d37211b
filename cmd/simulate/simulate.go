package simulate

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/mixcore/internal/conf"
	"github.com/tphakala/mixcore/internal/cpuspec"
	"github.com/tphakala/mixcore/internal/datastore"
	"github.com/tphakala/mixcore/internal/diagnostics"
	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/mediafile"
	"github.com/tphakala/mixcore/internal/observability"
)

// dbStatsInterval is how often journal size statistics are exported
// while the metrics endpoint is running.
const dbStatsInterval = 30 * time.Second

// Command creates the simulate command: run the mix graph for a fixed
// stretch of stream time and report what happened.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a deterministic mix graph simulation",
		Long: `Runs the packet mix pipeline for a fixed stretch of stream time on a
synthetic clock. Sources generate tones unless an input file is given;
faults like late packet delivery and mid-run clock rate changes can be
injected to observe underflow handling.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	setupFlags(cmd, settings)
	return cmd
}

// Run executes one simulation with the side effects the settings ask
// for: a metrics endpoint while the run lasts, a WAV capture of the mix,
// and a journal entry in the run store.
func Run(ctx context.Context, settings *conf.Settings) error {
	metricsInstance, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("simulate").
			Category(errors.CategorySystem).
			Build()
	}

	var wg sync.WaitGroup
	var quit chan struct{}
	if settings.Metrics.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metricsInstance)
		if err != nil {
			return err
		}
		quit = make(chan struct{})
		endpoint.Start(&wg, quit)
		defer func() {
			close(quit)
			wg.Wait()
		}()
	}

	store := datastore.New(settings)
	if store != nil {
		if err := store.Open(); err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("closing run store", "error", err)
			}
		}()
		// Journal size stats are only worth collecting while the
		// endpoint that exports them is up.
		if quit != nil {
			store.StartMonitoring(dbStatsInterval, quit)
		}
	}

	if settings.Simulation.Pace {
		// Paced runs put every source on its own goroutine; oversubscribing
		// the performance cores makes the period limiter jitter.
		if spec := cpuspec.GetCPUSpec(); settings.Simulation.Sources > spec.GetOptimalThreadCount() {
			log.Info("source count exceeds usable cores, paced periods may jitter",
				"sources", settings.Simulation.Sources,
				"usable_cores", spec.GetOptimalThreadCount())
		}
	}

	report, err := runSimulation(ctx, settings, metricsInstance.Pipeline)
	if err != nil {
		return err
	}

	if settings.Output.File.Enabled {
		path := filepath.Join(settings.Output.File.Path, "mix-"+report.RunID+".wav")
		if err := mediafile.WriteWAV(path, report.Format.SampleRate, report.Format.Channels, report.Captured); err != nil {
			return err
		}
		log.Info("capture written", "path", path, "frames", report.Frames)
	}

	if store != nil {
		run := &datastore.MixRun{
			RunID:         report.RunID,
			StartedAt:     report.StartedAt,
			Duration:      report.Simulated,
			SampleRate:    report.Format.SampleRate,
			Channels:      report.Format.Channels,
			Sources:       report.Sources,
			Periods:       report.Periods,
			FramesMixed:   report.FramesMixed,
			FramesSilence: report.FramesSilence,
		}
		if err := store.Save(run, report.Underflows); err != nil {
			return err
		}
		log.Info("run journaled", "run_id", report.RunID, "underflows", len(report.Underflows))
	}

	printSummary(os.Stdout, report)

	if settings.Debug {
		log.Debug("post-run system state", diagnostics.Capture().LogAttrs()...)
	}
	return nil
}

// printSummary writes a human readable account of the run.
func printSummary(w io.Writer, report *RunReport) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "run %s\n", report.RunID)
	p.Fprintf(w, "  format:     %s\n", report.Format)
	p.Fprintf(w, "  simulated:  %v in %v wall, %d periods\n",
		report.Simulated, report.Elapsed.Round(time.Millisecond), report.Periods)
	p.Fprintf(w, "  frames:     %d of %d carried data, %d stayed silent\n",
		report.FramesMixed, report.Frames, report.FramesSilence)
	p.Fprintf(w, "  packets:    %d pushed, %d released\n",
		report.PacketsPushed, report.PacketsReleased)
	p.Fprintf(w, "  underflows: %d\n", len(report.Underflows))
	for i := range report.Underflows {
		ev := &report.Underflows[i]
		p.Fprintf(w, "    %s missed %d frames (%v) at period %d\n",
			ev.Stage, ev.MissedFrames, ev.Missed, ev.PeriodIndex)
	}
	if report.ClockDrift != 0 {
		p.Fprintf(w, "  clock drift: %v\n", report.ClockDrift)
	}
}

// setupFlags binds the simulate flags to their viper configuration keys.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().DurationVar(&settings.Simulation.Duration, "duration",
		viper.GetDuration("simulation.duration"), "stream time to simulate")
	cmd.Flags().DurationVar(&settings.Simulation.PacketDuration, "packet",
		viper.GetDuration("simulation.packetduration"), "length of each source packet")
	cmd.Flags().IntVar(&settings.Simulation.Sources, "sources",
		viper.GetInt("simulation.sources"), "number of packet sources to mix")
	cmd.Flags().StringVar(&settings.Simulation.Input, "input",
		viper.GetString("simulation.input"), "wav or flac file feeding the first source")
	cmd.Flags().Int64Var(&settings.Simulation.RingFrames, "ring",
		viper.GetInt64("simulation.ringframes"), "frames in the ring buffer source, 0 disables it")
	cmd.Flags().IntVar(&settings.Simulation.LatePackets, "late",
		viper.GetInt("simulation.latepackets"), "first-source packets to deliver late")
	cmd.Flags().DurationVar(&settings.Simulation.LateBy, "lateby",
		viper.GetDuration("simulation.lateby"), "how late the stalled packets arrive, 0 means one period")
	cmd.Flags().BoolVar(&settings.Simulation.Pace, "pace",
		viper.GetBool("simulation.pace"), "pace mix periods against the wall clock")
	cmd.Flags().IntVar(&settings.Simulation.RateAdjustPPM, "ppm",
		viper.GetInt("simulation.rateadjustppm"), "clock rate adjustment in ppm applied mid-run")
	cmd.Flags().BoolVar(&settings.Output.SQLite.Enabled, "save",
		viper.GetBool("output.sqlite.enabled"), "journal the run to the sqlite store")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}
