// Package main is the entry point for the sensorviz application.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwulff/sensorviz/internal/aggregate"
	"github.com/jwulff/sensorviz/internal/analysis"
	"github.com/jwulff/sensorviz/internal/classify"
	"github.com/jwulff/sensorviz/internal/cleaner"
	"github.com/jwulff/sensorviz/internal/config"
	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/feed"
	"github.com/jwulff/sensorviz/internal/logging"
	"github.com/jwulff/sensorviz/internal/lttb"
	"github.com/jwulff/sensorviz/internal/render"
	"github.com/jwulff/sensorviz/internal/server"
	"github.com/jwulff/sensorviz/internal/session"
	"github.com/jwulff/sensorviz/internal/storage"
	"github.com/jwulff/sensorviz/internal/storage/memory"
	"github.com/jwulff/sensorviz/internal/storage/sqlite"
	"github.com/jwulff/sensorviz/internal/table"
	"github.com/jwulff/sensorviz/internal/views"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		return
	}

	cfg := config.Load()

	// Interactive commands print their own output; keep diagnostics to errors
	// unless SENSORVIZ_DEBUG asks for more.
	if os.Args[1] != "serve" && os.Getenv("SENSORVIZ_DEBUG") == "" {
		logging.SetLogLevel(slog.LevelError)
	}

	switch os.Args[1] {
	case "serve":
		if err := serve(cfg); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	case "summarize":
		if len(os.Args) < 3 {
			fmt.Println("Error: payload file required")
			fmt.Println("Usage: sensorviz summarize <payload.json>")
			os.Exit(1)
		}
		summarize(cfg, os.Args[2])
	case "preview":
		if len(os.Args) < 3 {
			fmt.Println("Error: payload file required")
			fmt.Println("Usage: sensorviz preview <payload.json> [column]")
			os.Exit(1)
		}
		column := ""
		if len(os.Args) > 3 {
			column = os.Args[3]
		}
		preview(cfg, os.Args[2], column)
	case "table":
		if len(os.Args) < 3 {
			fmt.Println("Error: payload file required")
			fmt.Println("Usage: sensorviz table <payload.json> [size]")
			os.Exit(1)
		}
		size := table.DefaultPageSize
		if len(os.Args) > 3 {
			n, ok := table.ParsePageSize(os.Args[3])
			if !ok {
				fmt.Println("Error: size must be a positive number or all")
				os.Exit(1)
			}
			size = n
		}
		browse(os.Stdin, os.Stdout, loadPayload(cfg, os.Args[2]), size, cfg.Location())
	case "simulate":
		rows := feed.DefaultWindow
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				fmt.Println("Error: rows must be a positive number")
				os.Exit(1)
			}
			rows = n
		}
		simulate(rows)
	default:
		showUsage()
	}
}

func showUsage() {
	fmt.Println("Sensorviz - sensor dataset explorer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sensorviz serve                          - Run the HTTP API")
	fmt.Println("  sensorviz summarize <payload.json>       - Describe a cleaned dataset")
	fmt.Println("  sensorviz preview <payload.json> [col]   - ASCII trend and histogram of a column")
	fmt.Println("  sensorviz table <payload.json> [size]    - Page through the rows interactively")
	fmt.Println("  sensorviz simulate [rows]                - Print a simulated station payload")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  SENSORVIZ_ADDR          - Listen address (default :8080)")
	fmt.Println("  SENSORVIZ_DB            - SQLite file for the dataset cache, or :memory: (default in-process map)")
	fmt.Println("  SENSORVIZ_TZ            - Time zone for parsing and bucketing (default UTC)")
	fmt.Println("  SENSORVIZ_CLEANER_URL   - Cleaning service endpoint for CSV uploads")
	fmt.Println("  SENSORVIZ_FEED_INTERVAL - Simulated feed interval (default 2s)")
	fmt.Println("  SENSORVIZ_FEED_WINDOW   - Simulated feed rows kept (default 50)")
	fmt.Println("  SENSORVIZ_DEBUG         - Log level 0-3 (default 1)")
	fmt.Println("  OPENAI_API_KEY          - Enables dataset analysis")
	fmt.Println("  OPENAI_BASE_URL         - Chat completion endpoint")
	fmt.Println("  OPENAI_MODEL            - Analysis model (default gpt-4o-mini)")
}

func openStore(cfg config.Config) (storage.Store, error) {
	var (
		store *sqlite.Store
		err   error
	)
	switch cfg.DBPath {
	case "":
		return memory.NewStore(), nil
	case ":memory:":
		store, err = sqlite.NewMemoryStore(cfg.Location())
	default:
		store, err = sqlite.NewFileStore(cfg.DBPath, cfg.Location())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func serve(cfg config.Config) error {
	log := logging.For("main")
	loc := cfg.Location()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	clean := cleaner.NewClient(cfg.CleanerURL, loc)
	if cfg.CleanerURL == "" {
		fmt.Println("No SENSORVIZ_CLEANER_URL - CSV upload disabled")
	}

	var analyzer server.Analyzer
	if cfg.OpenAIKey != "" {
		client, err := analysis.NewClient(analysis.Config{
			BaseURL: cfg.OpenAIBaseURL,
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create analysis client: %w", err)
		}
		analyzer = client
	} else {
		fmt.Println("No OPENAI_API_KEY - analysis disabled")
	}

	sess := session.New(store, clean, feed.NewGenerator(time.Now().UnixNano()), session.Options{
		FeedInterval: cfg.FeedInterval,
		FeedWindow:   cfg.FeedWindow,
	})
	defer sess.Close()
	if err := sess.Restore(context.Background()); err != nil {
		log.Warn("failed to restore session", "error", err)
	}

	srv := server.New(store, sess, analyzer, loc).HTTPServer(cfg.Addr)

	// Handle Ctrl+C gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Printf("Listening on %s (time zone %s)\n", cfg.Addr, loc)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		fmt.Println("\nStopping...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func loadPayload(cfg config.Config, path string) *dataset.Dataset {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	ds, err := dataset.Decode(data, cfg.Location())
	if err != nil {
		fmt.Printf("Error: %s: %v\n", path, err)
		os.Exit(1)
	}
	if ds.ID == "" {
		ds.ID = path
	}
	return ds
}

func summarize(cfg config.Config, path string) {
	loc := cfg.Location()
	ds := loadPayload(cfg, path)
	roles := classify.Classify(ds, loc)

	fmt.Printf("Dataset %s: %d rows, %d columns\n", ds.ID, ds.Len(), len(ds.Schema))
	fmt.Println()
	for _, col := range ds.Schema {
		role := ""
		switch {
		case col.Name == roles.Time:
			role = "time"
		case col.Name == roles.Categorical:
			role = "class"
		case contains(roles.Numeric, col.Name):
			role = "numeric"
		}
		fmt.Printf("  %-24s %-9s %-8s missing=%d out_of_range=%d\n",
			col.Name, string(col.Type), role, ds.Missing[col.Name], ds.OutOfRange[col.Name])
	}

	if months := aggregate.MonthChoices(ds.Rows, roles.Time, loc); len(months) > 0 {
		labels := make([]string, len(months))
		for i, m := range months {
			labels[i] = m.Label
		}
		fmt.Println()
		fmt.Printf("Months: %s\n", strings.Join(labels, ", "))
	}

	if counts := table.CountClasses(ds.Rows, roles.Categorical); len(counts) > 0 {
		fmt.Println()
		fmt.Printf("Classes (%s):\n", roles.Categorical)
		for _, c := range counts {
			fmt.Printf("  %-10s %d\n", c.Name, c.Count)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func preview(cfg config.Config, path, column string) {
	loc := cfg.Location()
	ds := loadPayload(cfg, path)
	roles := classify.Classify(ds, loc)

	if column == "" {
		if len(roles.Numeric) == 0 {
			fmt.Println("Error: no numeric columns to preview")
			os.Exit(1)
		}
		column = roles.Numeric[0]
	}

	var points []lttb.Point
	trend := views.TrendOf(ds, column, aggregate.All, loc)
	if len(trend.Series) > 0 {
		points = lttb.Downsample(views.BucketPoints(trend.Series[0].Buckets), render.PreviewWidth)
	}
	var data render.PreviewData
	data.Title = column
	data.Trend = points
	if hists := views.HistogramsOf(ds, column, "", loc); len(hists.Histograms) > 0 {
		data.Bins = hists.Histograms[0].Bins
	}

	fmt.Print(render.ASCII(render.ComposePreview(data)))
	fmt.Printf("%s: %d trend points, %d bins\n", column, len(points), len(data.Bins))
}

func simulate(rows int) {
	f := feed.New(session.RealtimeID, feed.NewGenerator(time.Now().UnixNano()), nil)
	f.Window = rows
	now := time.Now()
	f.Now = func() time.Time {
		now = now.Add(feed.DefaultInterval)
		return now
	}

	for i := 0; i < rows; i++ {
		f.Tick()
	}

	out, err := json.MarshalIndent(f.Snapshot(), "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
