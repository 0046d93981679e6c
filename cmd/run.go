package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/intake"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/pipeline"
	"github.com/spigell/resume-ranker/internal/results"
	"github.com/spigell/resume-ranker/internal/resume"
)

const (
	PromptAccept              = "Accept requirements"
	PromptEdit                = "Edit requirements"
	PromptShow                = "Show requirements"
	PromptAbort               = "Abort"
	PromptExportCSV           = "Export CSV"
	PromptExportXLSX          = "Export XLSX"
	PromptReportByBand        = "Report by band"
	PromptResultsToFile       = "Dump results to file"
	PromptAppendToExcludeFile = "Append all candidates to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

var reviewPrompt = promptui.Select{
	Label: "Review the extracted requirements",
	Items: []string{PromptAccept, PromptEdit, PromptShow, PromptAbort},
}

var runCmd = &cobra.Command{
	Use:   "run JOB_DESCRIPTION RESUME_OR_DIR...",
	Short: "Extract requirements from a job description and rank resumes against them",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "accept the extracted requirements and export CSV without asking")
	runCmd.Flags().StringP("exclude-file", "e", "", "special file with resumes to exclude. Default is unset.")
	runCmd.Flags().IntP("limit", "l", 0, "analyze at most this many resumes. Zero means no limit.")
	runCmd.Flags().StringP("output", "o", "", "directory for exported files (default is export.path)")

	viper.BindPFlag("exclude-file", runCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("limit", runCmd.Flags().Lookup("limit"))
	viper.BindPFlag("export.path", runCmd.Flags().Lookup("output"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-ranker", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	service, err := newService(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating the analysis service", zap.Error(err))
	}

	orchestrator := pipeline.New(service, config.Scoring, logger)
	if err := orchestrator.SelectModels(config.AI.models()); err != nil {
		logger.Fatal("selecting models", zap.Error(err))
	}

	description, err := os.ReadFile(args[0])
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	if _, err := orchestrator.AnalyzeJob(ctx, string(description)); err != nil {
		logger.Fatal("analyzing the job description", zap.Error(err))
	}

	if err := review(ctx, orchestrator, logger, autoApprove); err != nil {
		if errors.Is(err, errExit) {
			return
		}
		logger.Fatal("reviewing requirements", zap.Error(err))
	}

	docs, err := collectResumes(ctx, config, args[1:], logger)
	if err != nil {
		logger.Fatal("collecting resumes", zap.Error(err))
	}

	if len(docs) == 0 {
		logger.Info("exiting", zap.String("reason", "no resumes left after filters"))
		return
	}

	orchestrator.ClearQueue()
	for _, doc := range docs {
		if err := orchestrator.QueueResume(doc); err != nil {
			logger.Fatal("queueing resume", zap.String("file", doc.Name), zap.Error(err))
		}
	}

	if _, err := orchestrator.AnalyzeResumes(ctx); err != nil {
		logger.Fatal("analyzing resumes", zap.Error(err))
	}

	action := PromptExportCSV
	for {
		if !autoApprove {
			_, action, err = resultsPrompt(config).Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		logger.Info("current list of candidates", zap.Int("count", len(orchestrator.Candidates())))

		if err := handleAction(action, orchestrator, logger, config); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if autoApprove {
			return
		}
	}
}

// review loops over the requirements menu until the user accepts or edits them.
func review(ctx context.Context, orchestrator *pipeline.Orchestrator, logger *zap.Logger, autoApprove bool) error {
	if autoApprove {
		return orchestrator.SkipReview()
	}

	for {
		_, action, err := reviewPrompt.Run()
		if err != nil {
			return err
		}

		switch action {
		case PromptAccept:
			return orchestrator.SkipReview()
		case PromptShow:
			sections, err := orchestrator.RequirementsText()
			if err != nil {
				return err
			}
			fmt.Println(renderSections(sections))
		case PromptEdit:
			sections, err := orchestrator.RequirementsText()
			if err != nil {
				return err
			}

			edited, err := editSections(sections)
			if err != nil {
				logger.Warn("editing requirements failed", zap.Error(err))
				continue
			}

			reqs, err := orchestrator.UpdateRequirements(ctx, edited)
			if err != nil {
				logger.Warn("requirements were not accepted, try again", zap.Error(err))
				continue
			}

			logger.Info("requirements updated", zap.Int("items", reqs.Count()))
			return nil
		case PromptAbort:
			logger.Info("exiting", zap.String("reason", "got abort from prompt"))
			return errExit
		default:
			return fmt.Errorf("invalid action: %s", action)
		}
	}
}

func collectResumes(ctx context.Context, config *Config, paths []string, logger *zap.Logger) ([]*resume.Document, error) {
	docs, err := intake.Collect(paths, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("collected resumes", zap.Int("count", len(docs)))

	steps := []intake.Filter{
		intake.NewDuplicates(),
		intake.NewExcludeFile(config.ExcludeFile),
		intake.NewLimit(config.Limit),
	}

	return intake.Run(ctx, logger, steps, docs)
}

func resultsPrompt(config *Config) *promptui.Select {
	items := []string{PromptExportCSV, PromptExportXLSX, PromptReportByBand, PromptResultsToFile}
	if config.ExcludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}

	return &promptui.Select{
		Label: "What next?",
		Items: append(items, PromptExit),
	}
}

func handleAction(action string, orchestrator *pipeline.Orchestrator, logger *zap.Logger, config *Config) error {
	switch action {
	case PromptExportCSV:
		return exportTo(config.Export.Path, results.ExportFilename, orchestrator.Export, logger)
	case PromptExportXLSX:
		return exportTo(config.Export.Path, results.ExportFilenameXLSX, orchestrator.ExportXLSX, logger)
	case PromptReportByBand:
		pretty, _ := json.MarshalIndent(results.ReportByBand(orchestrator.Candidates(), orchestrator.Thresholds()), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", len(orchestrator.Candidates())))
		return nil
	case PromptResultsToFile:
		filename, err := results.DumpToTmpFile(orchestrator.Candidates())
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		excluded, err := intake.LoadExcluded(config.ExcludeFile)
		if err != nil {
			return err
		}

		excluded.Append(intake.FromCandidates(orchestrator.Candidates()))

		if err := excluded.ToFile(config.ExcludeFile); err != nil {
			return err
		}

		logger.Info("appended to exclude file", zap.String("filename", config.ExcludeFile))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// exportTo writes an export into dir using the given file name.
func exportTo(dir, name string, write func(w io.Writer) error, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("export %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	logger.Info("exported results", zap.String("filename", path))
	return nil
}
