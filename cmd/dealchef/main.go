package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"dealchef/internal/ai"
	"dealchef/internal/cache"
	"dealchef/internal/catalog"
	"dealchef/internal/config"
	"dealchef/internal/logsink"
	"dealchef/internal/recipes"
	"dealchef/internal/telemetry"
)

type cliOptions struct {
	stores      string
	categories  string
	search      string
	minDiscount float64
	maxPrice    float64
	generate    string
}

func main() {
	var opts cliOptions
	var serve bool
	var addr string
	var help bool

	flag.BoolVar(&serve, "serve", false, "Run HTTP server mode")
	flag.StringVar(&addr, "addr", ":8080", "Address to bind in server mode")
	flag.StringVar(&opts.stores, "store", "", "Comma separated stores to include (Woolworths, Coles, Aldi, IGA)")
	flag.StringVar(&opts.categories, "category", "", "Comma separated categories to include")
	flag.StringVar(&opts.search, "q", "", "Only products whose name contains this text")
	flag.Float64Var(&opts.minDiscount, "min-discount", 0, "Minimum percentage off")
	flag.Float64Var(&opts.maxPrice, "max-price", 0, "Maximum discounted price (0 or >= 1000 for no limit)")
	flag.StringVar(&opts.generate, "generate", "", "Comma separated product ids to generate recipes from")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message")
	flag.Parse()

	if help {
		showHelp()
		return
	}

	if err := start(opts, serve, addr); err != nil {
		log.Fatal(err)
	}
}

// start owns the process lifetime so deferred log flushes run before exit.
func start(opts cliOptions, serve bool, addr string) error {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var sinks []slog.Handler
	if cfg.Logs.Container != "" {
		appender, err := logsink.NewBlobAppender(cfg.Logs.AccountName, cfg.Logs.AccountKey, cfg.Logs.Container)
		if err != nil {
			return fmt.Errorf("failed to create log sink: %w", err)
		}
		sink := logsink.New(appender, logsink.Config{})
		defer sink.Close()
		sinks = append(sinks, sink)
	}

	shutdown, err := telemetry.Setup(ctx, "dealchef", os.Stderr, sinks...)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return err
	}

	if serve {
		err = runServer(a, addr)
	} else {
		err = run(ctx, a, opts, os.Stdout)
	}
	if err != nil {
		slog.Error("dealchef failed", "error", err)
	}
	return err
}

// app is everything both the CLI and the server need.
type app struct {
	catalog   *catalog.Cache
	store     *recipes.Store
	generator *recipes.Generator
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	provider, err := catalog.NewProvider(ctx, cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog provider: %w", err)
	}
	backend, err := cache.MakeCache(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe store: %w", err)
	}
	model, err := ai.NewFromConfig(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe generator: %w", err)
	}
	return assemble(provider, backend, model, cfg.AI.RecipeCount), nil
}

func assemble(provider catalog.Provider, backend cache.ListCache, model ai.Generator, count int) *app {
	products := catalog.NewCache(provider)
	store := recipes.NewStore(backend)
	return &app{
		catalog:   products,
		store:     store,
		generator: recipes.NewGenerator(products, model, store, count),
	}
}

func run(ctx context.Context, a *app, opts cliOptions, out io.Writer) error {
	if opts.generate != "" {
		generated, err := a.generator.Generate(ctx, recipes.GeneratePayload{
			ProductIDs: strings.Split(opts.generate, ","),
		})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(generated)
	}

	spec, err := catalog.ParseFilter(opts.query())
	if err != nil {
		return err
	}
	filtered, err := a.catalog.Query(ctx, spec)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tSTORE\tPRICE\tWAS\tOFF")
	for _, p := range filtered {
		fmt.Fprintf(tw, "%s\t%s\t%s\t$%s\t$%s\t%.0f%%\n", p.ID, p.Name, p.Store, p.DiscountedPrice.StringFixed(2), p.OriginalPrice.StringFixed(2), p.PercentageOff)
	}
	// a source-side query leaves the catalog unloaded and the total unknown
	if a.catalog.Loaded() {
		total, err := a.catalog.GetOrLoad(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "\n%d of %d products, %d active filters\n", len(filtered), len(total), spec.ActiveCount())
	} else {
		fmt.Fprintf(tw, "\n%d products, %d active filters\n", len(filtered), spec.ActiveCount())
	}
	return tw.Flush()
}

// query reuses the HTTP filter parsing so both surfaces agree.
func (o cliOptions) query() url.Values {
	q := url.Values{}
	if o.stores != "" {
		q.Set("store", o.stores)
	}
	if o.categories != "" {
		q.Set("category", o.categories)
	}
	if o.search != "" {
		q.Set("q", o.search)
	}
	if o.minDiscount != 0 {
		q.Set("min_discount", strconv.FormatFloat(o.minDiscount, 'f', -1, 64))
	}
	if o.maxPrice > 0 {
		q.Set("max_price", strconv.FormatFloat(o.maxPrice, 'f', -1, 64))
	}
	return q
}

func showHelp() {
	fmt.Println("dealchef - supermarket specials and recipes built from them")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dealchef [-store Coles,Aldi] [-category Dairy] [-q milk] [-min-discount 20] [-max-price 10]")
	fmt.Println("  dealchef -generate <id>,<id>[,...]")
	fmt.Println("  dealchef -serve [-addr :8080]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}
