// Package main provides a CLI command for finding titles similar to a stored
// one, using the persisted similarity index.
// Usage: similar TITLE_ID [--n N] [--min-score X] [--output json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"media-observer/internal/config"
	pgStorage "media-observer/internal/infra/adapter/persistence/postgres"
	sqliteStorage "media-observer/internal/infra/adapter/persistence/sqlite"
	"media-observer/internal/infra/db"
	"media-observer/internal/index"
	"media-observer/internal/observability/logging"
	"media-observer/internal/repository"
)

// MatchOutput is one similar title in the JSON output.
type MatchOutput struct {
	TitleID    int64             `json:"title_id"`
	Score      float32           `json:"score"`
	Placements []PlacementOutput `json:"placements"`
}

// PlacementOutput is one appearance of a title on a stored front page.
type PlacementOutput struct {
	Site        string    `json:"site"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	ScheduledAt time.Time `json:"scheduled_at"`
	IsMain      bool      `json:"is_main"`
	Rank        int       `json:"rank,omitempty"`
}

func main() {
	var (
		settingsPath string
		n            int
		minScore     float64
		outputFormat string
	)
	flag.StringVar(&settingsPath, "settings", "settings.yaml", "path to the settings file")
	flag.IntVar(&n, "n", 10, "maximum number of similar titles to return")
	flag.Float64Var(&minScore, "min-score", 0, "minimum dot-product score, 0 accepts everything")
	flag.StringVar(&outputFormat, "output", "text", "output format: text or json")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: a title id is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: similar TITLE_ID [--n N] [--min-score X] [--output json]")
		os.Exit(1)
	}
	titleID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid title id %q\n", args[0])
		os.Exit(1)
	}

	logger := initLogger()

	settings, err := config.Load(settingsPath)
	if err != nil {
		logger.Error("failed to load settings", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
		os.Exit(1)
	}

	idx := index.New(settings.Index.Path)
	if err := idx.Load(); err != nil {
		logger.Error("failed to load similarity index", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: failed to load index from %s: %v\n", settings.Index.Path, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := openStorage(ctx, settings.DatabaseURL)
	if err != nil {
		logger.Error("failed to open storage", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	var accept func(float32) bool
	if minScore > 0 {
		threshold := float32(minScore)
		accept = func(score float32) bool { return score >= threshold }
	}

	results, err := idx.Search([]int64{titleID}, n, accept)
	if err != nil {
		logger.Error("search failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: search failed: %v\n", err)
		os.Exit(1)
	}
	matches := results[0].Matches

	ids := make([]int64, 0, len(matches)+1)
	ids = append(ids, titleID)
	for _, m := range matches {
		ids = append(ids, m.TitleID)
	}
	placements, err := storage.ListArticlesOnFrontPage(ctx, ids)
	if err != nil {
		logger.Error("failed to list placements", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: failed to list placements: %v\n", err)
		os.Exit(1)
	}

	byTitle := make(map[int64][]repository.ArticleOnFrontPage)
	for _, p := range placements {
		byTitle[p.TitleID] = append(byTitle[p.TitleID], p)
	}

	if outputFormat == "json" {
		outputJSON(matches, byTitle)
	} else {
		outputText(titleID, matches, byTitle)
	}
}

func outputText(titleID int64, matches []index.Match, byTitle map[int64][]repository.ArticleOnFrontPage) {
	if query := byTitle[titleID]; len(query) > 0 {
		fmt.Printf("Similar to: %s\n\n", query[0].Title)
	} else {
		fmt.Printf("Similar to title %d\n\n", titleID)
	}

	if len(matches) == 0 {
		fmt.Println("No similar titles found.")
		return
	}

	for i, m := range matches {
		placements := byTitle[m.TitleID]
		title := fmt.Sprintf("title %d", m.TitleID)
		if len(placements) > 0 {
			title = placements[0].Title
		}
		fmt.Printf("%d. %s\n", i+1, title)
		fmt.Printf("   Score: %.3f\n", m.Score)
		for _, p := range placements {
			slot := "main"
			if !p.IsMain {
				slot = fmt.Sprintf("top #%d", p.Rank)
			}
			fmt.Printf("   %s (%s) %s\n", p.SiteName, slot, p.ScheduledAt.Format(time.RFC3339))
			fmt.Printf("   %s\n", p.URLArticle)
		}
		fmt.Println()
	}
}

func outputJSON(matches []index.Match, byTitle map[int64][]repository.ArticleOnFrontPage) {
	output := make([]MatchOutput, len(matches))
	for i, m := range matches {
		placements := make([]PlacementOutput, 0, len(byTitle[m.TitleID]))
		for _, p := range byTitle[m.TitleID] {
			placements = append(placements, PlacementOutput{
				Site:        p.SiteName,
				Title:       p.Title,
				URL:         p.URLArticle,
				ScheduledAt: p.ScheduledAt,
				IsMain:      p.IsMain,
				Rank:        p.Rank,
			})
		}
		output[i] = MatchOutput{TitleID: m.TitleID, Score: m.Score, Placements: placements}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, databaseURL string) (repository.Storage, error) {
	handle, dialect, err := db.Open(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case db.DialectPostgres:
		return pgStorage.NewStorage(handle)
	case db.DialectSQLite:
		return sqliteStorage.NewStorage(handle)
	default:
		_ = handle.Close()
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

// initLogger initializes and returns a structured logger on stderr so the
// command output stays clean.
func initLogger() *slog.Logger {
	logger := logging.NewStderrLogger()
	slog.SetDefault(logger)
	return logger
}
