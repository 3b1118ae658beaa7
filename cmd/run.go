package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/cv-screener/internal/analyzer"
	"github.com/spigell/cv-screener/internal/analyzer/gemini"
	"github.com/spigell/cv-screener/internal/analyzer/remote"
	"github.com/spigell/cv-screener/internal/export"
	"github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/secrets"
	"github.com/spigell/cv-screener/internal/session"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptExport = "Export passing CVs to archive"
	PromptReport = "Show results report"
	PromptDump   = "Dump results to file"
	PromptCutoff = "Change cutoff"
	PromptFinish = "Finish session and clear saved state"
	PromptQuit   = "Quit (keep session)"

	defaultStateFile = "cv-screener.state.json"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Proceed?",
	Items: []string{PromptExport, PromptReport, PromptDump, PromptCutoff, PromptFinish, PromptQuit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cv-screener main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("resubmit", "r", false, "force a new analysis even when a previous session holds results")
	runCmd.Flags().BoolP("auto-export", "y", false, "export the passing CVs and exit without prompting")
	runCmd.Flags().IntP("cutoff", "c", 0, "match percentage threshold a CV must reach to pass")

	viper.BindPFlag("cutoff", runCmd.Flags().Lookup("cutoff"))
}

// screeningRun bundles the mutable state driven by the action prompt.
type screeningRun struct {
	config   *Config
	store    *session.Store
	registry *screening.Registry
	results  *screening.Results
	selected *screening.Selection
	cutoff   int
	ranked   []screening.RankedEntry
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cv-screener", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	selected, err := buildSelection(config.Selection)
	if err != nil {
		logger.Fatal("building the dimension selection", zap.Error(err))
	}

	store := session.New(stateFilePath(config), logger)
	prior := store.Load()

	job, err := loadJobDescription(config.JobDescription)
	if err != nil {
		logger.Fatal("loading the job description",
			zap.Error(err),
			zap.String("hint", "set the 'job-description' key in the configuration file"),
		)
	}

	if err := store.SaveJobTitle(job.DisplayName); err != nil {
		logger.Warn("saving job description name", zap.Error(err))
	}

	registry := screening.NewRegistry()
	docs, err := collectDocuments(config.CVs)
	if err != nil {
		logger.Fatal("collecting CVs", zap.Error(err))
	}
	registry.Add(docs...)

	if registry.Len() == 0 {
		logger.Fatal("no CVs found", zap.Strings("paths", config.CVs))
	}

	logger.Info("collected CVs", zap.Int("count", registry.Len()))

	if err := store.SaveFiles(registry.Names()); err != nil {
		logger.Warn("saving CV names", zap.Error(err))
	}

	results := screening.NewResults()

	resubmit := cmd.Flag("resubmit").Value.String() == "true"
	if len(prior.Results) > 0 && !resubmit {
		results.Replace(prior.Results)
		logger.Info("restored results from the previous session",
			zap.Int("count", results.Len()),
			zap.String("hint", "pass --resubmit to run a new analysis"),
		)
	} else {
		backend, err := newBackend(ctx, config, logger)
		if err != nil {
			logger.Fatal("building the analysis backend", zap.Error(err))
		}

		submitter := analyzer.NewSubmitter(backend, logger)

		outcomes, err := submitter.Submit(ctx, job, registry.List(), selected)
		if err != nil {
			logger.Fatal("analysis failed", zap.Error(err))
		}

		results.Replace(outcomes)

		if err := store.SaveResults(results.List()); err != nil {
			logger.Warn("saving results snapshot", zap.Error(err))
		}
	}

	state := &screeningRun{
		config:   config,
		store:    store,
		registry: registry,
		results:  results,
		selected: selected,
		cutoff:   config.Cutoff,
	}
	state.reclassify(logger)

	if cmd.Flag("auto-export").Value.String() == "true" {
		if err := exportArchive(state, logger); err != nil {
			logger.Fatal("exporting archive", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, state, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, state *screeningRun, logger *zap.Logger) error {
	switch action {
	case PromptExport:
		return exportArchive(state, logger)
	case PromptReport:
		pretty, _ := json.MarshalIndent(state.results.Report(state.selected), "", "  ")
		logger.Info(string(pretty), zap.Int("cv count", state.results.Len()))
		return nil
	case PromptDump:
		filename, err := state.results.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping results to file", zap.String("filename", filename))
		return nil
	case PromptCutoff:
		return changeCutoff(state, logger)
	case PromptFinish:
		if err := state.store.Clear(); err != nil {
			return fmt.Errorf("clearing session state: %w", err)
		}
		logger.Info("exiting", zap.String("reason", "session finished and cleared"))
		return errExit
	case PromptQuit:
		logger.Info("exiting", zap.String("reason", "got quit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *screeningRun) reclassify(logger *zap.Logger) {
	s.ranked = screening.Classify(s.results, s.cutoff)

	passing := len(screening.PassingNames(s.ranked))
	logger.Info("classified results",
		zap.Int("cutoff", s.cutoff),
		zap.Int("passing", passing),
		zap.Int("failing", len(s.ranked)-passing),
	)
}

func exportArchive(state *screeningRun, logger *zap.Logger) error {
	data, err := export.Archive(state.registry, state.ranked)
	switch {
	case errors.Is(err, export.ErrNoResults):
		logger.Warn("nothing to export", zap.String("reason", "no analysis results yet"))
		return nil
	case errors.Is(err, export.ErrNothingPassing):
		logger.Warn("nothing to export",
			zap.String("reason", "no CVs passing the cutoff"),
			zap.Int("cutoff", state.cutoff),
		)
		return nil
	case err != nil:
		return fmt.Errorf("building archive: %w", err)
	}

	dir := state.config.ExportDir
	if dir == "" {
		dir = "."
	}

	path := filepath.Join(dir, export.ArchiveName(state.cutoff))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}

	logger.Info("exported passing CVs",
		zap.String("filename", path),
		zap.Int("count", len(screening.PassingNames(state.ranked))),
	)
	return nil
}

func changeCutoff(state *screeningRun, logger *zap.Logger) error {
	cutoffPrompt := promptui.Prompt{
		Label: "New cutoff (0-100)",
		Validate: func(raw string) error {
			_, err := screening.ParseCutoff(raw)
			return err
		},
	}

	raw, err := cutoffPrompt.Run()
	if err != nil {
		return err
	}

	cutoff, err := screening.ParseCutoff(raw)
	if err != nil {
		return err
	}

	state.cutoff = cutoff
	state.reclassify(logger)
	return nil
}

func newBackend(ctx context.Context, config *Config, logger *zap.Logger) (analyzer.Backend, error) {
	switch strings.TrimSpace(strings.ToLower(config.Analyzer)) {
	case "", "remote":
		if config.Endpoint == "" {
			return nil, errors.New("endpoint is required for the remote analyzer")
		}

		// The endpoint token is optional for local deployments.
		token := ""
		tokenFile := strings.TrimSpace(config.TokenFile)
		if tokenFile == "" {
			tokenFile = strings.TrimSpace(viper.GetString("token-file"))
		}
		if tokenFile != "" {
			loaded, err := secrets.Load("endpoint token", tokenFile)
			if err != nil {
				return nil, err
			}
			token = loaded
		}

		client := remote.New(config.Endpoint, token, logger)
		if config.UserAgent != "" {
			client.UserAgent = config.UserAgent
		}
		return client, nil
	case "gemini":
		if config.AI == nil || config.AI.Gemini == nil {
			return nil, errors.New("ai.gemini configuration is required for the gemini analyzer")
		}

		apiKey, err := secrets.Load("gemini api key", config.AI.Gemini.APIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model, config.AI.Gemini.MaxRetries, logger)
		if err != nil {
			return nil, err
		}

		return gemini.NewMatcher(generator, config.AI.Gemini.MaxLogLength, logger), nil
	default:
		return nil, fmt.Errorf("unsupported analyzer: %s", config.Analyzer)
	}
}

func buildSelection(identifiers []string) (*screening.Selection, error) {
	if len(identifiers) == 0 {
		return screening.NewSelection(screening.DimensionAll)
	}

	dims := make([]screening.Dimension, 0, len(identifiers))
	for _, raw := range identifiers {
		dim, err := screening.ParseDimension(raw)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}

	return screening.NewSelection(dims...)
}

func loadJobDescription(path string) (*screening.JobDescription, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("job description file is required")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &screening.JobDescription{
		DisplayName: filepath.Base(path),
		Content:     content,
	}, nil
}

// collectDocuments reads CVs from the configured paths. A directory entry
// contributes every regular file inside it, non-recursively.
func collectDocuments(paths []string) ([]*screening.Document, error) {
	var docs []*screening.Document

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			doc, err := readDocument(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			doc, err := readDocument(filepath.Join(path, entry.Name()))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func readDocument(path string) (*screening.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &screening.Document{
		Name:    filepath.Base(path),
		Content: content,
	}, nil
}

func stateFilePath(config *Config) string {
	if config.StateFile != "" {
		return config.StateFile
	}
	return defaultStateFile
}
