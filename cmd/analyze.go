package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-report/internal/progress"
	"github.com/spigell/resume-report/internal/report"
	"github.com/spigell/resume-report/internal/submission"
	"github.com/spigell/resume-report/internal/upload"
	"github.com/spigell/resume-report/internal/utils"
)

const (
	PromptYes         = "Yes"
	PromptNo          = "No"
	PromptRemoveFile  = "Choose another file"
	PromptRetry       = "Retry"
	PromptExit        = "Exit"
	settleDelay       = 350 * time.Millisecond
	progressRefresh   = 50 * time.Millisecond
	progressBarWidth  = 30
	exitCodeCancelled = 130
)

var errExit = errors.New("exit requested")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Upload a résumé (PDF, DOC or DOCX, up to 10MB) and print the match report",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, map[string]string{
			"report.format":     "output",
			"report.color":      "color",
			"ui.sniff-mime":     "sniff",
			"ui.reduced-motion": "reduced-motion",
			"analyzer.url":      "url",
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		analyze(cmd, path)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before uploading")
	analyzeCmd.Flags().StringP("output", "o", "text", "report format: text or json")
	analyzeCmd.Flags().Bool("color", true, "colorize the text report")
	analyzeCmd.Flags().Bool("sniff", false, "detect the file type from its content instead of the extension")
	analyzeCmd.Flags().Bool("reduced-motion", false, "show a fixed progress value instead of an animated one")
	analyzeCmd.Flags().String("url", "", "analyzer base URL")
}

// analyze drives the submission machine from the terminal.
func analyze(cmd *cobra.Command, path string) {
	ctx := context.Background()
	logger, config := setup()

	autoApprove := cmd.Flag("auto-approve").Value.String() == "true"
	if autoApprove && path == "" {
		logger.Fatal("a file is required with --auto-approve")
	}

	transport, err := newTransport(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the analyzer", zap.Error(err))
	}

	machine, err := submission.New(submission.Config{
		ReducedMotion: config.UI.ReducedMotion,
	}, submission.Deps{
		Transport: transport,
		Scheduler: progress.NewFrameScheduler(progress.DefaultFrameInterval),
		Logger:    logger,
		Observer:  logState(logger),
	})
	if err != nil {
		logger.Fatal("creating the submission", zap.Error(err))
	}
	defer machine.Close()

	stopSignals := cancelOnInterrupt(machine)
	defer stopSignals()

	if path != "" {
		if err := selectPath(machine, path, config.UI.SniffMIME); err != nil {
			if autoApprove {
				logger.Fatal("selecting the file", zap.Error(err))
			}
			logger.Warn("selecting the file", zap.Error(err))
		}
	}

	for {
		err := step(ctx, cmd, machine, config, autoApprove, logger)
		if err == nil {
			continue
		}
		if errors.Is(err, errExit) {
			return
		}
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			logger.Info("exiting", zap.String("reason", "interrupted"))
			os.Exit(exitCodeCancelled)
		}
		logger.Fatal("exiting", zap.Error(err))
	}
}

// step advances the machine by one user decision. It returns errExit when the run is over.
func step(ctx context.Context, cmd *cobra.Command, m *submission.Machine, config *Config, autoApprove bool, logger *zap.Logger) error {
	switch st := m.State().(type) {
	case submission.Idle:
		path, err := askPath(config.UI.SniffMIME)
		if err != nil {
			return err
		}
		if err := selectPath(m, path, config.UI.SniffMIME); err != nil {
			logger.Warn("selecting the file", zap.Error(err))
		}
		return nil

	case submission.FileSelected:
		action := PromptYes
		if !autoApprove {
			var err error
			_, action, err = (&promptui.Select{
				Label: fmt.Sprintf("Analyze %s (%s)?", st.Candidate.Name, st.Candidate.SizeLabel()),
				Items: []string{PromptYes, PromptRemoveFile, PromptNo},
			}).Run()
			if err != nil {
				return err
			}
		}

		switch action {
		case PromptYes:
			return submit(ctx, cmd.ErrOrStderr(), m, config.UI.ReducedMotion)
		case PromptRemoveFile:
			m.RemoveFile()
			return nil
		default:
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return errExit
		}

	case submission.Succeeded:
		// let the full bar show before switching to the report
		if err := utils.WaitFor(ctx, settleDelay); err != nil {
			return err
		}
		if err := writeReport(ctx, cmd.OutOrStdout(), st.Report, config.Report, logger); err != nil {
			return err
		}
		return errExit

	case submission.Failed, submission.Cancelled:
		message := m.Snapshot().Message
		if autoApprove {
			if st.Kind() == submission.KindFailed {
				return fmt.Errorf("%s", message)
			}
			logger.Info("exiting", zap.String("reason", message))
			return errExit
		}

		_, action, err := (&promptui.Select{
			Label: message,
			Items: []string{PromptRetry, PromptRemoveFile, PromptExit},
		}).Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptRetry:
			return m.Retry()
		case PromptRemoveFile:
			m.Reset()
			return nil
		default:
			return errExit
		}

	default:
		return fmt.Errorf("unexpected state: %s", st.Kind())
	}
}

// submit starts the upload and draws the progress bar until the submission settles.
func submit(ctx context.Context, w io.Writer, m *submission.Machine, reducedMotion bool) error {
	if _, err := m.StartSubmission(ctx); err != nil {
		return err
	}

	styler := promptui.Styler(promptui.FGCyan)
	draw := func(snap submission.Snapshot) {
		label := "Uploading " + snap.Candidate.Name
		if snap.Kind != submission.KindSubmitting {
			label = "Done"
		}
		fmt.Fprintf(w, "\r%s %s %3.0f%%", styler(report.Bar(int(snap.Progress), progressBarWidth)), label, snap.Progress)
	}

	var last submission.Snapshot
	err := utils.Poll(ctx, progressRefresh, func() bool {
		snap := m.Snapshot()
		if !reducedMotion || snap.Progress != last.Progress {
			draw(snap)
		}
		last = snap
		return snap.Kind != submission.KindSubmitting
	})
	fmt.Fprintln(w)

	return err
}

func askPath(sniff bool) (string, error) {
	prompt := promptui.Prompt{
		Label: "Path to your résumé (PDF, DOC, DOCX up to 10MB)",
		Validate: func(input string) error {
			candidate, err := upload.FromFile(strings.TrimSpace(input), sniff)
			if err != nil {
				return err
			}
			return upload.Validate(candidate).Err()
		},
	}

	path, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

func selectPath(m *submission.Machine, path string, sniff bool) error {
	candidate, err := upload.FromFile(path, sniff)
	if err != nil {
		return err
	}
	return m.SelectFile(candidate)
}

// cancelOnInterrupt cancels the outstanding submission on SIGINT or SIGTERM.
// Outside a submission the signal ends the process.
func cancelOnInterrupt(m *submission.Machine) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-sigCh:
				if m.State().Kind() == submission.KindSubmitting {
					m.Cancel()
					continue
				}
				m.Close()
				os.Exit(exitCodeCancelled)
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
