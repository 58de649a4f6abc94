package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/gradescan/internal/grading"
	"github.com/pavelanni/gradescan/internal/handler"
	appI18n "github.com/pavelanni/gradescan/internal/i18n"
	"github.com/pavelanni/gradescan/internal/llm"
	"github.com/pavelanni/gradescan/internal/llm/prompts"
	"github.com/pavelanni/gradescan/internal/model"
	"github.com/pavelanni/gradescan/internal/pages"
	"github.com/pavelanni/gradescan/internal/report"
	"github.com/pavelanni/gradescan/internal/sheet"
	"github.com/pavelanni/gradescan/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradescan",
		Short: "Grade scanned handwritten math exams with a vision LLM",
	}

	grade := gradeCmd()
	root.AddCommand(grade, serveCmd(), setupCmd())

	// Make "grade" the default when no subcommand is given.
	root.RunE = grade.RunE

	// Register grade flags on root so bare `gradescan --pages ...` still works.
	root.Flags().AddFlagSet(grade.Flags())

	return root
}

func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "https://api.poe.com/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for LLM (or set GRADESCAN_LLM_KEY)")
	f.String("llm-model", "GPT-4o", "Vision model name")
	f.String("prompt-variant", string(prompts.PromptStandard), "Grading rubric variant (strict, standard, lenient)")
	f.String("comment-language", model.DefaultCommentLanguage, "Language the model writes feedback in")
	f.String("comment-policy", string(model.CommentPolicyFirst), "Overall comment merge policy (first, concat)")
	f.IntP("pages-per-student", "p", model.DefaultPagesPerStudent, "Consecutive pages per student")
	f.Int("max-key-pages", model.DefaultMaxKeyPages, "Solution key pages forwarded per call")
	f.Int("max-images-per-call", model.DefaultMaxImagesPerCall, "Image ceiling per model call, key pages included")
	f.IntP("concurrency", "c", model.DefaultConcurrency, "Concurrent model calls")
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade a directory of scanned exam pages",
		RunE:  runGrade,
	}
	f := cmd.Flags()
	f.String("pages", "", "Directory of student page images, lexical order = page order (required)")
	f.String("key", "", "Directory of solution key page images")
	f.String("source-name", "", "Source document name for reports and the score log (default: pages directory name)")
	f.String("out-html", "report.html", "HTML report output path")
	f.String("out-csv", "report.csv", "CSV report output path")
	f.String("score-log", "", "xlsx score log path (skipped when empty)")
	f.StringP("lang", "l", "zh-Hant", "Report language (en, zh-Hant)")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP grading server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "gradescan.db", "SQLite database path")
	f.String("score-log", "scores.xlsx", "xlsx score log path")
	f.StringP("lang", "l", "zh-Hant", "Report language (en, zh-Hant)")
	addLLMFlags(cmd)
	addLogFlags(cmd)
	return cmd
}

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Initialize the database and score log workbook",
		RunE:  runSetup,
	}
	f := cmd.Flags()
	f.String("db", "gradescan.db", "SQLite database path")
	f.String("score-log", "scores.xlsx", "xlsx score log path")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradescan")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradescan")
	v.AddConfigPath("/etc/gradescan")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func gradingConfig(v *viper.Viper) model.GradingConfig {
	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.PromptStandard)
	}
	return model.GradingConfig{
		APIKey:           v.GetString("llm-key"),
		BaseURL:          v.GetString("llm-url"),
		Model:            v.GetString("llm-model"),
		PagesPerStudent:  v.GetInt("pages-per-student"),
		MaxKeyPages:      v.GetInt("max-key-pages"),
		MaxImagesPerCall: v.GetInt("max-images-per-call"),
		Concurrency:      v.GetInt("concurrency"),
		PromptVariant:    promptVariant,
		CommentLanguage:  v.GetString("comment-language"),
		CommentPolicy:    model.CommentPolicy(v.GetString("comment-policy")),
	}
}

func runGrade(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	pagesDir := v.GetString("pages")
	studentPages, err := pages.LoadDir(pagesDir)
	if err != nil {
		return fmt.Errorf("load student pages: %w", err)
	}
	if len(studentPages) == 0 {
		slog.Warn("no page images found, nothing to grade", "dir", pagesDir)
		return nil
	}

	var key model.SolutionKey
	if keyDir := v.GetString("key"); keyDir != "" {
		key.Pages, err = pages.LoadDir(keyDir)
		if err != nil {
			return fmt.Errorf("load solution key: %w", err)
		}
	}
	if len(key.Pages) == 0 {
		slog.Warn("no solution key provided, grading without a marking scheme")
	}

	cfg := gradingConfig(v)
	llmClient, err := llm.New(cfg)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	sourceName := v.GetString("source-name")
	if sourceName == "" {
		sourceName = pagesDir
	}

	results := grading.NewOrchestrator(llmClient, cfg).Run(context.Background(), studentPages, key)

	renderer := report.NewRenderer(lang)
	htmlOut, err := renderer.HTML(sourceName, results)
	if err != nil {
		return fmt.Errorf("render HTML report: %w", err)
	}
	csvOut, err := renderer.CSV(results)
	if err != nil {
		return fmt.Errorf("render CSV report: %w", err)
	}
	if err := os.WriteFile(v.GetString("out-html"), htmlOut, 0o644); err != nil {
		return fmt.Errorf("write HTML report: %w", err)
	}
	if err := os.WriteFile(v.GetString("out-csv"), csvOut, 0o644); err != nil {
		return fmt.Errorf("write CSV report: %w", err)
	}

	if logPath := v.GetString("score-log"); logPath != "" {
		scoreLog, err := sheet.Open(logPath)
		if err != nil {
			return fmt.Errorf("open score log: %w", err)
		}
		if err := scoreLog.AppendResults(sourceName, results); err != nil {
			return fmt.Errorf("append score log: %w", err)
		}
	}

	failures := 0
	for _, r := range results {
		if r.Failed() {
			failures++
		}
	}
	slog.Info("grading complete",
		"students", len(results),
		"failures", failures,
		"html", v.GetString("out-html"),
		"csv", v.GetString("out-csv"),
	)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	scoreLog, err := sheet.Open(v.GetString("score-log"))
	if err != nil {
		return fmt.Errorf("open score log: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := gradingConfig(v)
	llmClient, err := llm.New(cfg)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	h := handler.New(db, grading.NewOrchestrator(llmClient, cfg), report.NewRenderer(lang), scoreLog)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", cfg.Model,
		"llm_url", cfg.BaseURL,
		"lang", lang,
		"pages_per_student", cfg.PagesPerStudent,
		"concurrency", cfg.Concurrency,
	)
	return http.ListenAndServe(addr, r)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := sheet.Open(v.GetString("score-log")); err != nil {
		return fmt.Errorf("create score log: %w", err)
	}

	slog.Info("initialized", "db", v.GetString("db"), "score_log", v.GetString("score-log"))
	return nil
}
