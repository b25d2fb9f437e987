package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/docvars/extracteur/internal/common"
	"github.com/docvars/extracteur/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "extracteur",
		Short:         "Extracts typed template variables from document text",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newBatchCmd())
	return root
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
}

func newAnalyzeCmd() *cobra.Command {
	var (
		locale       string
		entitiesPath string
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze one document (a file path, or stdin when omitted or -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			pipe, err := pipeline.New(cfg, slog.Default())
			if err != nil {
				return err
			}

			input := pipeline.Input{LocaleHint: locale}
			if len(args) == 1 && args[0] != "-" {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return common.WrapError(err, "reading input file")
				}
				input.Text = string(data)
				input.FilePath = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return common.WrapError(err, "reading stdin")
				}
				input.Text = string(data)
			}
			if entitiesPath != "" {
				raw, err := os.ReadFile(entitiesPath)
				if err != nil {
					return common.WrapError(err, "reading entities file")
				}
				input.RawEntities = raw
			}

			res := pipe.Analyze(cmd.Context(), input)
			return writeResult(cmd.OutOrStdout(), outPath, res)
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "locale hint (fr, ma, sn, ci, cm, dz, tn)")
	cmd.Flags().StringVar(&entitiesPath, "entities", "", "path to a NER entities JSON payload")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the result JSON to this file instead of stdout")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var (
		locale string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Analyze every .txt document in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			pipe, err := pipeline.New(cfg, slog.Default())
			if err != nil {
				return err
			}

			dir := args[0]
			if outDir == "" {
				outDir = filepath.Join(dir, "extracted")
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return common.WrapError(err, "creating output directory")
			}

			paths, err := collectDocuments(dir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				slog.Default().Warn("batch.no_documents", "dir", dir)
				return nil
			}

			handler := func(jobID string, res *pipeline.Result) {
				name := "result_" + jobID + ".json"
				if res.FilePath != "" {
					base := filepath.Base(res.FilePath)
					name = strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
				}
				if err := writeResultFile(filepath.Join(outDir, name), res); err != nil {
					slog.Default().Error("batch.write_failed", "job_id", jobID, "error", err)
				}
			}

			queue := pipeline.NewQueue(pipe, handler, slog.Default(),
				pipeline.WithWorkers(cfg.Batch.Workers),
				pipeline.WithQueueSize(cfg.Batch.QueueSize),
				pipeline.WithProcessTimeout(cfg.Pipeline.DocumentTimeout))

			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(cfg.Batch.Workers)
			for _, path := range paths {
				path := path
				g.Go(func() error {
					data, err := os.ReadFile(path)
					if err != nil {
						return common.WrapError(err, "reading "+path)
					}
					_, err = queue.Enqueue(gctx, pipeline.Input{
						Text:       string(data),
						FilePath:   path,
						LocaleHint: locale,
					})
					return err
				})
			}
			readErr := g.Wait()

			queue.Shutdown(cmd.Context())
			if readErr != nil {
				return readErr
			}
			slog.Default().Info("batch.done", "documents", len(paths), "out_dir", outDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&locale, "locale", "", "locale hint applied to every document")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <dir>/extracted)")
	return cmd
}

func collectDocuments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "walking input directory")
	}
	return paths, nil
}

func writeResult(stdout io.Writer, outPath string, res *pipeline.Result) error {
	if outPath != "" {
		return writeResultFile(outPath, res)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func writeResultFile(path string, res *pipeline.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return common.WrapError(err, "encoding result")
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
