package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	jsoniter "github.com/json-iterator/go"

	"github.com/nullbytefox/posterhound/internal/browser"
	"github.com/nullbytefox/posterhound/internal/config"
	"github.com/nullbytefox/posterhound/internal/observability"
	"github.com/nullbytefox/posterhound/internal/pacing"
	"github.com/nullbytefox/posterhound/internal/records"
	"github.com/nullbytefox/posterhound/internal/scrape"
)

// shutdownGrace bounds how long browser teardown may take after a run.
const shutdownGrace = 15 * time.Second

// urlResult is the per-input entry in the run envelope. Exactly one of
// Error and Batch is populated.
type urlResult struct {
	URL   string         `json:"url" yaml:"url"`
	Error string         `json:"error,omitempty" yaml:"error,omitempty"`
	Batch *records.Batch `json:"batch,omitempty" yaml:"batch,omitempty"`
}

// runEnvelope is what the scrape command writes out: one entry per input
// URL, in input order, plus enough metadata to correlate with the logs.
type runEnvelope struct {
	RunID     string      `json:"run_id" yaml:"run_id"`
	Timestamp time.Time   `json:"timestamp" yaml:"timestamp"`
	Results   []urlResult `json:"results" yaml:"results"`
}

// newScrapeCmd creates and configures the `scrape` command.
func newScrapeCmd() *cobra.Command {
	scrapeCmd := &cobra.Command{
		Use:   "scrape [urls...]",
		Short: "Scrapes artwork metadata from the given gallery URLs or saved pages",
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line values override
			// the config file and environment with the right precedence.
			if err := viper.BindPFlag("scraper.max_workers", cmd.Flags().Lookup("concurrency")); err != nil {
				return err
			}
			if err := viper.BindPFlag("scraper.use_browser", cmd.Flags().Lookup("browser")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("scraper.asset_kind_filter", cmd.Flags().Lookup("asset-kinds")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// The context from Execute is signal-aware.
			ctx := cmd.Context()
			logger := observability.GetLogger()

			outputPath, _ := cmd.Flags().GetString("output")
			format, _ := cmd.Flags().GetString("format")
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
			}

			bulkPath, _ := cmd.Flags().GetString("bulk")
			urls, err := gatherInputs(args, bulkPath)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs to scrape: pass them as arguments or via --bulk")
			}

			// Re-resolve the config now that PreRunE bound the flags.
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			runID := uuid.New().String()
			logger.Info("Starting scrape run",
				zap.String("runID", runID),
				zap.Int("urls", len(urls)),
				zap.Bool("browser", cfg.Scraper.UseBrowser),
				zap.Int("workers", cfg.Scraper.MaxWorkers),
			)

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			pacer := pacing.New(pacing.Config{
				InitialDelay: cfg.Scraper.InitialDelay,
				MinDelay:     cfg.Scraper.MinDelay,
				MaxDelay:     cfg.Scraper.MaxDelay,
				BatchDelay:   cfg.Scraper.BatchDelay,
				BatchSize:    cfg.Scraper.BatchSize,
			}, rng, logger)

			var fetcher scrape.PageFetcher
			if cfg.Scraper.UseBrowser {
				manager, err := browser.NewManager(ctx, cfg.Browser, rng, logger)
				if err != nil {
					return fmt.Errorf("failed to launch browser: %w", err)
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
					defer cancel()
					if err := manager.Shutdown(shutdownCtx); err != nil {
						logger.Warn("Browser shutdown incomplete", zap.Error(err))
					}
				}()
				fetcher = scrape.NewOrchestrator(manager, pacer, cfg.Browser,
					cfg.Scraper.PageWaitMin, cfg.Scraper.PageWaitMax, rng, logger)
			} else {
				fetcher = scrape.NewStaticFetcher(pacer, cfg.Browser.NavigationTimeout, rng, logger)
			}

			scraper, err := scrape.NewScraper(cfg.Scraper, fetcher, logger)
			if err != nil {
				return err
			}

			results := scraper.Run(ctx, urls)

			envelope := runEnvelope{
				RunID:     runID,
				Timestamp: time.Now().UTC(),
				Results:   make([]urlResult, 0, len(results)),
			}
			var failed int
			for _, r := range results {
				entry := urlResult{URL: r.URL}
				if r.Err != nil {
					failed++
					entry.Error = r.Err.Error()
					logger.Warn("Scrape failed", zap.String("url", r.URL), zap.Error(r.Err))
				} else {
					entry.Batch = r.Batch
				}
				envelope.Results = append(envelope.Results, entry)
			}

			if err := writeEnvelope(envelope, format, outputPath); err != nil {
				return err
			}

			logger.Info("Scrape run finished",
				zap.String("runID", runID),
				zap.Int("succeeded", len(results)-failed),
				zap.Int("failed", failed),
			)

			if err := ctx.Err(); err != nil && errors.Is(err, context.Canceled) {
				return fmt.Errorf("scrape run aborted by signal, partial results written")
			}
			if failed == len(results) {
				return fmt.Errorf("all %d scrape tasks failed", failed)
			}
			return nil
		},
	}

	scrapeCmd.Flags().StringP("bulk", "b", "", "File with one URL per line (blank lines and #/// comments ignored).")
	scrapeCmd.Flags().StringP("output", "o", "", "Output file path. If unset, results go to stdout.")
	scrapeCmd.Flags().StringP("format", "f", "json", "Output format ('json' or 'yaml').")
	scrapeCmd.Flags().Int("concurrency", 0, "Maximum concurrent scrape tasks. (Overrides config/env)")
	scrapeCmd.Flags().Bool("browser", true, "Use the full browser pipeline; disable for plain HTTP fetching.")
	scrapeCmd.Flags().Bool("headless", true, "Run the browser headless.")
	scrapeCmd.Flags().StringSlice("asset-kinds", nil, "Keep only these asset kinds from hydration sources (e.g. show_cover,title_card).")

	return scrapeCmd
}

// gatherInputs combines positional URLs with the bulk file, preserving
// order: arguments first, then the file top to bottom.
func gatherInputs(args []string, bulkPath string) ([]string, error) {
	urls := make([]string, 0, len(args))
	for _, a := range args {
		if s := strings.TrimSpace(a); s != "" {
			urls = append(urls, s)
		}
	}
	if bulkPath == "" {
		return urls, nil
	}
	data, err := os.ReadFile(bulkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bulk file: %w", err)
	}
	return append(urls, scrape.ParseURLList(strings.Split(string(data), "\n"))...), nil
}

// writeEnvelope serializes the envelope to the requested destination.
func writeEnvelope(envelope runEnvelope, format, outputPath string) error {
	var data []byte
	var err error
	switch format {
	case "yaml":
		data, err = yaml.Marshal(envelope)
	default:
		data, err = jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(envelope, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if format != "yaml" {
		data = append(data, '\n')
	}

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
