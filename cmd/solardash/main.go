package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/solardash/internal/api"
	"github.com/lox/solardash/internal/charts"
	"github.com/lox/solardash/internal/config"
	"github.com/lox/solardash/internal/dataset"
	"github.com/lox/solardash/internal/fetch"
	"github.com/lox/solardash/internal/ingest"
	"github.com/lox/solardash/internal/logging"
	"github.com/lox/solardash/internal/render"
	"github.com/lox/solardash/internal/store"
)

type Globals struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file.'"`

	LogLevel  string `default:"info" enum:"debug,info,warn,error" env:"SOLARDASH_LOG_LEVEL" help:"Log level."`
	LogFormat string `default:"text" enum:"text,json" env:"SOLARDASH_LOG_FORMAT" help:"Log format."`
	DataDir   string `default:"data" env:"SOLARDASH_DATA_DIR" type:"path" help:"Directory holding the country CSV files."`
	Countries string `env:"SOLARDASH_COUNTRIES" type:"path" help:"YAML file listing countries. Built-in defaults when empty."`
	DB        string `default:"data/solardash.db" env:"SOLARDASH_DB" help:"Path to SQLite database."`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" help:"Run the dashboard web server."`
	Import   ImportCmd   `cmd:"" help:"Import country CSVs into SQLite."`
	Fetch    FetchCmd    `cmd:"" help:"Download country CSVs from a mirror."`
	Describe DescribeCmd `cmd:"" help:"Print summary statistics for a country."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("solardash"),
		kong.Description("Solar radiation dashboard for Benin, Togo and Sierra Leone."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

func (g *Globals) logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(os.Stderr, level, g.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

func (g *Globals) countries() (*config.Countries, error) {
	return config.LoadCountries(g.Countries)
}

func (g *Globals) openStore(log *slog.Logger) (*store.Store, func() error, error) {
	db, err := store.Open(g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	st := store.New(db, log)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return st, db.Close, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

type ServeCmd struct {
	Addr        string        `default:":8080" env:"SOLARDASH_ADDR" help:"Listen address."`
	Source      string        `default:"csv" enum:"csv,sqlite" env:"SOLARDASH_SOURCE" help:"Where datasets are read from."`
	History     bool          `default:"true" negatable:"" env:"SOLARDASH_HISTORY" help:"Record dataset loads in SQLite."`
	ChartCache  string        `env:"SOLARDASH_CHART_CACHE" type:"path" help:"Directory for rendered chart images. Disabled when empty."`
	ChartMaxAge time.Duration `default:"24h" env:"SOLARDASH_CHART_MAX_AGE" help:"How long rendered charts are kept."`
}

func (c *ServeCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	countries, err := g.countries()
	if err != nil {
		return err
	}

	cfg := api.Config{Addr: c.Addr, Countries: countries, Logger: log}

	var src dataset.Source = dataset.NewFileSource(g.DataDir)
	var recorder dataset.LoadRecorder
	if c.Source == "sqlite" || c.History {
		st, closeDB, err := g.openStore(log)
		if err != nil {
			return err
		}
		defer closeDB()
		cfg.Store = st
		if c.History {
			recorder = st
		}
		if c.Source == "sqlite" {
			src = st
		}
	}
	cfg.Cache = dataset.NewCache(src, recorder, log)

	if c.ChartCache != "" {
		images, err := render.NewDiskCache(c.ChartCache, c.ChartMaxAge)
		if err != nil {
			return err
		}
		if n, err := images.Prune(); err != nil {
			log.Warn("prune chart cache", "error", err)
		} else if n > 0 {
			log.Info("pruned chart cache", "removed", n)
		}
		cfg.Images = images
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("starting server", "addr", c.Addr, "source", src.Name(), "data_dir", g.DataDir)
	return api.NewServer(cfg).Run(ctx)
}

type ImportCmd struct {
	Countries []string `arg:"" optional:"" help:"Country keys to import. All when omitted."`
}

func (c *ImportCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	countries, err := g.countries()
	if err != nil {
		return err
	}
	selected, err := countries.Select(c.Countries)
	if err != nil {
		return err
	}
	st, closeDB, err := g.openStore(log)
	if err != nil {
		return err
	}
	defer closeDB()

	ctx, cancel := signalContext()
	defer cancel()

	im := ingest.NewImporter(dataset.NewFileSource(g.DataDir), st, log)
	var failed int
	for _, country := range selected {
		res, err := im.Import(ctx, country)
		if err != nil {
			log.Error("import failed", "country", country.Key, "error", err)
			failed++
			continue
		}
		fmt.Printf("%s: %d rows stored, %d flagged\n", res.Country, res.RowsStored, res.RowsFlagged)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(selected))
	}
	return nil
}

type FetchCmd struct {
	Mirror    string   `required:"" env:"SOLARDASH_MIRROR" help:"Base URL (http, https or ftp) holding the CSV files."`
	Countries []string `arg:"" optional:"" help:"Country keys to fetch. All when omitted."`
}

func (c *FetchCmd) Run(g *Globals) error {
	log, err := g.logger()
	if err != nil {
		return err
	}
	countries, err := g.countries()
	if err != nil {
		return err
	}
	selected, err := countries.Select(c.Countries)
	if err != nil {
		return err
	}
	f, err := fetch.New(c.Mirror, g.DataDir, log)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for _, country := range selected {
		res, err := f.Fetch(ctx, country)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", country.Key, err)
		}
		fmt.Printf("%s: %d bytes from %s -> %s\n", res.Country, res.Bytes, res.URL, res.Path)
	}
	return nil
}

type DescribeCmd struct {
	Country string `arg:"" help:"Country key."`
	Start   string `help:"First day (YYYY-MM-DD)."`
	End     string `help:"Last day (YYYY-MM-DD)."`
}

func (c *DescribeCmd) Run(g *Globals) error {
	if _, err := g.logger(); err != nil {
		return err
	}
	countries, err := g.countries()
	if err != nil {
		return err
	}
	country, ok := countries.Lookup(c.Country)
	if !ok {
		return fmt.Errorf("unknown country %q", c.Country)
	}

	src := dataset.NewFileSource(g.DataDir)
	t, err := src.Load(context.Background(), country)
	if err != nil {
		return err
	}
	if first, last, ok := t.DateBounds(); ok {
		start, end := first, last
		if c.Start != "" {
			if start, err = time.Parse("2006-01-02", c.Start); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		}
		if c.End != "" {
			if end, err = time.Parse("2006-01-02", c.End); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
		}
		t = t.FilterDates(start, end)
		fmt.Printf("%s: %s to %s\n", country.Name, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	m := dataset.Summarize(t)
	fmt.Printf("rows=%d avg_ghi=%s avg_dni=%s avg_tamb=%s max_ws=%s\n\n", m.Rows, m.AvgGHI, m.AvgDNI, m.AvgTamb, m.MaxWS)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	printTable(tw, charts.SummaryTable(t))
	return tw.Flush()
}

func printTable(tw *tabwriter.Writer, t *charts.Table) {
	for i, col := range t.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw, "\t")
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw, "\t")
	}
}
