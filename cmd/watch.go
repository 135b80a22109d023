package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-report/internal/dropzone"
	"github.com/spigell/resume-report/internal/logger"
	"github.com/spigell/resume-report/internal/metrics"
	"github.com/spigell/resume-report/internal/progress"
	"github.com/spigell/resume-report/internal/submission"
	"github.com/spigell/resume-report/internal/upload"
)

const shutdownTimeout = 5 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze every résumé dropped into a folder",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{
			"metrics.listen":    "metrics-listen",
			"report.format":     "output",
			"report.color":      "color",
			"ui.sniff-mime":     "sniff",
			"ui.reduced-motion": "reduced-motion",
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger, config := setup()

		if err := watch(ctx, cmd.OutOrStdout(), args[0], config, logger); err != nil {
			logger.Fatal("watching", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("metrics-listen", "", "serve Prometheus metrics on this address, e.g. :9090")
	watchCmd.Flags().StringP("output", "o", "text", "report format: text or json")
	watchCmd.Flags().Bool("color", true, "colorize the text report")
	watchCmd.Flags().Bool("sniff", false, "detect the file type from its content instead of the extension")
	watchCmd.Flags().Bool("reduced-motion", false, "do not animate the progress value")
}

// watch submits the files dropped into dir one at a time until ctx is done.
// Files dropped while a submission is in flight are rejected with submission.ErrBusy.
func watch(ctx context.Context, w io.Writer, dir string, config *Config, log *zap.Logger) error {
	transport, err := newTransport(ctx, config, log)
	if err != nil {
		return fmt.Errorf("creating the analyzer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	machine, err := submission.New(submission.Config{
		ReducedMotion: config.UI.ReducedMotion,
	}, submission.Deps{
		Transport: transport,
		Scheduler: progress.NewFrameScheduler(progress.DefaultFrameInterval),
		Logger:    log,
		Metrics:   metrics.New(reg),
		Observer:  logState(log),
	})
	if err != nil {
		return err
	}
	defer machine.Close()

	candidates := make(chan upload.Candidate)
	surface := dropzone.NewSurface(handOff(candidates), log)

	watcher := dropzone.NewWatcher(dir, surface, dropzone.WatcherOptions{
		Sniff:  config.UI.SniffMIME,
		Logger: log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case c := <-candidates:
				if err := process(gctx, w, machine, c, config, log); err != nil {
					return err
				}
			}
		}
	})

	if listen := config.Metrics.Listen; listen != "" {
		srv := &http.Server{
			Addr:              listen,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: shutdownTimeout,
		}

		g.Go(func() error {
			log.Info("serving metrics", zap.String("listen", listen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// handOff passes a dropped file to the submission loop only while the loop waits for one.
// candidates must be unbuffered; otherwise a file dropped mid-submission would be queued.
func handOff(candidates chan<- upload.Candidate) dropzone.SelectorFunc {
	return func(c upload.Candidate) error {
		select {
		case candidates <- c:
			return nil
		default:
			return submission.ErrBusy
		}
	}
}

// process runs one candidate through the machine and leaves it idle again.
// Only report writing errors are returned; analyzer failures are logged.
func process(ctx context.Context, w io.Writer, m *submission.Machine, c upload.Candidate, config *Config, log *zap.Logger) error {
	log = logger.WithFields(log, logger.CandidateFields(c.Name, c.MIMEType)...)
	defer m.Reset()

	if err := m.SelectFile(c); err != nil {
		log.Warn("selecting the dropped file", zap.Error(err))
		return nil
	}

	if _, err := m.StartSubmission(ctx); err != nil {
		log.Warn("starting the submission", zap.Error(err))
		return nil
	}

	st, err := m.Wait(ctx)
	if err != nil {
		m.Cancel()
		return nil
	}

	switch st := st.(type) {
	case submission.Succeeded:
		fmt.Fprintf(w, "==> %s\n", c.Name)
		return writeReport(ctx, w, st.Report, config.Report, log)
	case submission.Failed:
		log.Warn("analysis failed", zap.String("message", st.Message))
	case submission.Cancelled:
		log.Info("analysis cancelled")
	}

	return nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
