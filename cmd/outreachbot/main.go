package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/outreachbot/internal/browser"
	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/connect"
	"github.com/example/outreachbot/internal/discovery"
	"github.com/example/outreachbot/internal/logging"
	"github.com/example/outreachbot/internal/message"
	"github.com/example/outreachbot/internal/models"
	"github.com/example/outreachbot/internal/session"
	"github.com/example/outreachbot/internal/store"
)

func main() {
	ctx := context.Background()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to config file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `outreachbot - automated outreach pipeline

Usage:
  outreachbot [--config config.yaml] <command> [options]

Commands:
  validate                 Check setup (credentials, cookies, API key, db) and session
  discover [--max-prospects N --max-searches N]
                           Run the search matrix and store new prospects
  connect [--max-requests N --prospects file.json --url URL]
                           Send connection requests to pending prospects,
                           a JSON batch, or a single URL
  status [--url URL]       Show pipeline stats, or the relationship with URL
  run-all [--max-prospects N --max-requests N]
                           validate, discover, connect in order

Examples:
  outreachbot --config config.yaml validate
  outreachbot discover --max-prospects 25
  outreachbot connect --max-requests 5
`)
	}

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Logging.Level)
	log.Info("outreachbot starting", "version", "0.1.0")
	log.Info("config loaded", "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Error("db open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		log.Error("db migration failed", "err", err)
		os.Exit(1)
	}

	cmd := flag.Arg(0)
	log.Info("executing command", "command", cmd)
	switch cmd {
	case "validate":
		err = runValidate(ctx, cfg, st)
	case "discover":
		err = runDiscover(ctx, cfg, st)
	case "connect":
		err = runConnect(ctx, cfg, st)
	case "status":
		err = runStatus(ctx, cfg, st)
	case "run-all":
		err = runAll(ctx, cfg, st)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Error("command failed", "cmd", cmd, "err", err)
		fmt.Fprintf(os.Stderr, "\ncommand failed: %v\n", err)
		os.Exit(1)
	}
	log.Info("command completed successfully", "cmd", cmd)
}

// runValidate reports on every piece of setup the pipeline needs and then
// proves the session end to end. Missing credentials or session material is
// fatal; a missing API key only downgrades messages to templates.
func runValidate(ctx context.Context, cfg *config.Config, st *store.Store) error {
	check := func(name string, ok bool, detail string) {
		state := "ok"
		if !ok {
			state = "MISSING"
		}
		fmt.Printf("%-22s %-8s %s\n", name, state, detail)
	}

	_, cookieErr := os.Stat(filepath.Join(".cache", "cookies.json"))
	hasCreds := os.Getenv("LINKEDIN_EMAIL") != "" && os.Getenv("LINKEDIN_PASSWORD") != ""
	check("cookies", cookieErr == nil, ".cache/cookies.json")
	check("credentials", hasCreds, "LINKEDIN_EMAIL / LINKEDIN_PASSWORD")
	check("groq api key", os.Getenv("GROQ_API_KEY") != "", "GROQ_API_KEY (templates used without it)")

	_, selErr := os.Stat(cfg.Locator.Path)
	check("selector config", selErr == nil, cfg.Locator.Path+" (built-in defaults used without it)")

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	check("database", true, fmt.Sprintf("%s (%d prospects, %d pending)", cfg.Database.Path, stats.Prospects, stats.Pending))

	if cookieErr != nil && !hasCreds {
		return fmt.Errorf("no session material: provide cookies or credentials")
	}

	br, err := browser.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	p, err := session.New(br, cfg).Ensure(ctx)
	if err != nil {
		return err
	}
	p.Close()
	check("session", true, "authenticated")
	return nil
}

func runDiscover(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	var maxProspects, maxSearches int
	fs.IntVar(&maxProspects, "max-prospects", cfg.Limits.MaxProspectsPerRun, "Max new prospects to store in this run")
	fs.IntVar(&maxSearches, "max-searches", cfg.Limits.MaxSearchesPerRun, "Max search queries in this run")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}
	if maxProspects > 0 {
		cfg.Limits.MaxProspectsPerRun = maxProspects
	}
	if maxSearches > 0 {
		cfg.Limits.MaxSearchesPerRun = maxSearches
	}

	br, err := browser.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	p, err := session.New(br, cfg).Ensure(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	summary, err := discovery.New(cfg, st).Run(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("discovery: %d new, %d duplicates, %d rejected\n",
		summary.ProspectsFound, summary.DuplicatesFound, summary.ValidationErrors)
	return nil
}

func runConnect(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("connect", flag.ContinueOnError)
	var maxRequests int
	var prospectsFile, profileURL string
	fs.IntVar(&maxRequests, "max-requests", cfg.Limits.MaxRequestsPerRun, "Max successful requests in this run")
	fs.StringVar(&prospectsFile, "prospects", "", "JSON file of prospects to import before the run")
	fs.StringVar(&profileURL, "url", "", "Send a single request to this profile URL")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	if prospectsFile != "" {
		stored, dups, err := importProspects(ctx, st, prospectsFile)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d prospects (%d duplicates)\n", stored, dups)
	}

	br, err := browser.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	p, err := session.New(br, cfg).Ensure(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	gen := message.NewAIGenerator(cfg, logging.New(cfg.Logging.Level))
	svc := connect.New(cfg, st, gen)

	if profileURL != "" {
		res := svc.SendRequest(ctx, p, &models.Prospect{ProfileURL: discovery.NormalizeProfileURL(profileURL)})
		if err := st.AppendResult(ctx, res); err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("request to %s failed: %s", res.ProfileURL, res.ErrorClass)
		}
		fmt.Printf("request sent to %s\n", res.ProfileURL)
		return nil
	}

	summary, err := svc.SendBulk(ctx, p, maxRequests)
	if err != nil {
		return err
	}
	fmt.Printf("connect: %d sent, %d failed\n", summary.Successful, summary.Failed)
	return nil
}

// importProspects loads a JSON array of prospects into the store, subject
// to the same URL-keyed dedup as discovery.
func importProspects(ctx context.Context, st *store.Store, path string) (int, int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	var batch []models.Prospect
	if err := json.Unmarshal(b, &batch); err != nil {
		return 0, 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range batch {
		batch[i].ProfileURL = discovery.NormalizeProfileURL(batch[i].ProfileURL)
	}
	return st.AppendProspects(ctx, batch)
}

func runStatus(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var profileURL string
	fs.StringVar(&profileURL, "url", "", "Check the relationship with this profile URL")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	if profileURL == "" {
		stats, err := st.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("prospects:        %d\n", stats.Prospects)
		fmt.Printf("pending:          %d\n", stats.Pending)
		fmt.Printf("requests sent:    %d\n", stats.RequestsSent)
		fmt.Printf("requests failed:  %d\n", stats.RequestsFailed)
		fmt.Printf("successful today: %d\n", stats.SuccessfulToday)
		return nil
	}

	br, err := browser.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	p, err := session.New(br, cfg).Ensure(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	gen := message.NewAIGenerator(cfg, logging.New(cfg.Logging.Level))
	state, err := connect.New(cfg, st, gen).CheckStatus(ctx, p, discovery.NormalizeProfileURL(profileURL))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", profileURL, state)
	return nil
}

func runAll(ctx context.Context, cfg *config.Config, st *store.Store) error {
	fs := flag.NewFlagSet("run-all", flag.ContinueOnError)
	var maxProspects, maxRequests int
	fs.IntVar(&maxProspects, "max-prospects", cfg.Limits.MaxProspectsPerRun, "Max new prospects to store")
	fs.IntVar(&maxRequests, "max-requests", cfg.Limits.MaxRequestsPerRun, "Max successful requests to send")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}
	if maxProspects > 0 {
		cfg.Limits.MaxProspectsPerRun = maxProspects
	}

	br, err := browser.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer br.Close()
	p, err := session.New(br, cfg).Ensure(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	dsum, err := discovery.New(cfg, st).Run(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("discovery: %d new, %d duplicates, %d rejected\n",
		dsum.ProspectsFound, dsum.DuplicatesFound, dsum.ValidationErrors)

	gen := message.NewAIGenerator(cfg, logging.New(cfg.Logging.Level))
	csum, err := connect.New(cfg, st, gen).SendBulk(ctx, p, maxRequests)
	if err != nil {
		return err
	}
	fmt.Printf("connect: %d sent, %d failed\n", csum.Successful, csum.Failed)
	return nil
}
