/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/storitran/internal/aligner"
	"github.com/valpere/storitran/internal/detector"
	"github.com/valpere/storitran/internal/diag"
	"github.com/valpere/storitran/internal/docengine"
	"github.com/valpere/storitran/internal/llm"
	"github.com/valpere/storitran/internal/pipeline"
	"github.com/valpere/storitran/internal/store"
	"github.com/valpere/storitran/internal/translator"
)

var (
	inputFile   string
	outputFile  string
	sourceLang  string
	targetLang  string
	credentials string
	projectID   string

	chatModel string
	chatURL   string

	ollamaModel string

	concurrency int
	maxRetries  int

	artifactsDir string
	logDir       string

	dbPath    string
	noAuditDB bool

	importPDF bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a paginated document page by page",
	Long: `Translate a paginated document page by page.

The input is a layout file: a JSON document listing pages, each with its full
text and its positioned text fragments (--import-pdf builds one from a PDF
first). Every page runs through the same sequence: extract, translate the
whole page, align the translation onto the fragments via an LLM chat session,
write the aligned translations back. Pages run concurrently and the output is
saved once, after every page has finished.

Available page translation services:
  - google   Google Cloud Translation (requires credentials)
  - ollama   Ollama LLM (self-hosted)

Fragment alignment always uses an Ollama chat model (--chat-model).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		ctx := context.Background()

		var doc *docengine.LayoutDocument
		var err error
		if importPDF {
			doc, err = docengine.ImportPDF(inputFile)
		} else {
			doc, err = docengine.Open(inputFile)
		}
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}

		sink, err := diag.New(diag.Options{
			Console:     os.Stderr,
			LogDir:      logDir,
			ArtifactDir: artifactsDir,
		})
		if err != nil {
			return fmt.Errorf("failed to set up diagnostics: %w", err)
		}
		defer sink.Close()

		det := detector.New()

		// Auto-detect source language from the first page when not specified.
		if sourceLang == "auto" {
			pages := doc.Pages()
			if text, terr := pages[0].FullText(); terr == nil {
				if detected, ok := det.DetectCode(text); ok {
					sourceLang = detected
					sink.Infof("Detected source language: %s", sourceLang)
				}
			}
		}

		serviceName := viper.GetString("service")
		service, err := buildService(serviceName, chatURL, ollamaModel)
		if err != nil {
			return err
		}

		backend := llm.NewOllamaChat(chatModel, chatURL)

		pipe := pipeline.New(pipeline.Config{
			Service: service,
			ServiceCfg: translator.ServiceConfig{
				Credentials: credentials,
				ProjectID:   projectID,
			},
			Aligner: aligner.New(backend, aligner.Config{
				MaxRetries: maxRetries,
				TargetLang: targetLang,
				Sink:       sink,
			}),
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Detector:   det,
			Sink:       sink,
		})

		sched := pipeline.NewScheduler(pipe, pipeline.SchedulerConfig{
			Concurrency: concurrency,
			Sink:        sink,
		})

		var db *store.Store
		var runID string
		if !noAuditDB && dbPath != "" {
			db, err = store.New(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			runID, err = db.CreateRun(ctx, inputFile, outputFile, sourceLang, targetLang, serviceName, doc.PageCount())
			if err != nil {
				return fmt.Errorf("failed to record run: %w", err)
			}
		}

		summary, runErr := sched.Process(ctx, doc, outputFile)

		if db != nil {
			for _, o := range summary.Outcomes {
				status, errMsg := "succeeded", ""
				if o.Err != nil {
					status, errMsg = "failed", o.Err.Error()
				}
				_ = db.SavePageResult(ctx, runID, o.PageNumber, status, o.Attempts, o.Duration, errMsg)
			}
			_ = db.FinishRun(ctx, runID, runStatus(summary), summary.Succeeded, summary.Failed)
		}

		var partial *pipeline.PartialError
		switch {
		case runErr == nil:
			fmt.Printf("Successfully translated %d pages %s to %s\n", summary.Succeeded, sourceLang, targetLang)
			return nil
		case errors.As(runErr, &partial):
			fmt.Printf("Translated %d/%d pages %s to %s; %d page(s) failed\n",
				summary.Succeeded, summary.PagesTotal, sourceLang, targetLang, summary.Failed)
			return runErr
		default:
			return runErr
		}
	},
}

func runStatus(summary *pipeline.RunSummary) string {
	switch {
	case !summary.Saved:
		return "failed"
	case summary.Failed > 0:
		return "partial"
	default:
		return "completed"
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input layout file, or a PDF with --import-pdf (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output layout file (required)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().StringVarP(&credentials, "credentials", "c", "", "Path to Google Cloud credentials")
	translateCmd.Flags().StringVarP(&projectID, "project", "p", "", "Google Cloud Project ID")

	translateCmd.Flags().String("service", "google", "Page translation service (google, ollama)")
	translateCmd.Flags().StringVar(&chatModel, "chat-model", "llama3.2", "Ollama chat model for fragment alignment")
	translateCmd.Flags().StringVar(&chatURL, "chat-url", "http://localhost:11434", "Ollama base URL")
	translateCmd.Flags().StringVar(&ollamaModel, "ollama-model", "", "Ollama model for whole-page translation (--service ollama)")

	translateCmd.Flags().IntVar(&concurrency, "concurrency", pipeline.DefaultConcurrency, "Maximum pages translated at once")
	translateCmd.Flags().IntVar(&maxRetries, "max-retries", aligner.DefaultMaxRetries, "Corrective alignment retries per page after the first attempt")

	translateCmd.Flags().StringVar(&artifactsDir, "artifacts", "", "Directory for per-page JSON artifacts (disabled if empty)")
	translateCmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for the run log file (disabled if empty)")

	translateCmd.Flags().StringVar(&dbPath, "db", "./data/storitran.db", "Database path for run history")
	translateCmd.Flags().BoolVar(&noAuditDB, "no-audit-db", false, "Disable run history recording")

	translateCmd.Flags().BoolVar(&importPDF, "import-pdf", false, "Treat the input as a PDF and extract its layout first")

	viper.BindPFlag("service", translateCmd.Flags().Lookup("service"))

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}
