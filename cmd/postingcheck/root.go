package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"postingcore/internal/config"
	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/domain/posting"
	"postingcore/internal/infrastructure/cache"
	"postingcore/internal/infrastructure/metrics"
	"postingcore/internal/infrastructure/storage/memory"
	"postingcore/internal/infrastructure/storage/postgres"
	"postingcore/internal/infrastructure/storage/postgres/rule_repo"
	"postingcore/pkg/logger"
)

// errFindings is returned when a command ran fine but found invalid
// postings or broken rules. main exits with status 2 for it.
var errFindings = errors.New("findings reported")

// flags are the persistent flags; set ones override the environment.
type flags struct {
	rulesFile   string
	databaseURL string
	policy      string
	logLevel    string
}

func (f *flags) overrides() map[string]any {
	out := make(map[string]any)
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set("RULES_FILE", f.rulesFile)
	set("DATABASE_URL", f.databaseURL)
	set("FAILURE_POLICY", f.policy)
	set("LOG_LEVEL", f.logLevel)
	return out
}

func rootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "postingcheck",
		Short: "Validate journal postings against field rules",
		Long: `postingcheck validates journal postings against the field rules
configured for their document type, account or account group, and checks
that debits and credits balance.

Rules come from a YAML file (--rules) or from PostgreSQL (--database-url).
Every setting can also be given as a POSTINGCORE_* environment variable or
in a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&f.rulesFile, "rules", "", "YAML rules file")
	cmd.PersistentFlags().StringVar(&f.databaseURL, "database-url", "", "PostgreSQL rule store DSN")
	cmd.PersistentFlags().StringVar(&f.policy, "policy", "", "Behavior when no rule set applies (fail_closed, fail_open)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(validateCmd(f), rulesCmd(f), watchCmd(f))
	return cmd
}

// app is the wired validation stack behind a command.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	store     fieldrules.Store
	files     *memory.Store
	pool      *postgres.Pool
	cache     *cache.RuleSetCache
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	validator *posting.Validator
}

// openApp loads the configuration and wires store, cache, resolver and
// validator. The returned context carries the logger.
func openApp(ctx context.Context, f *flags) (context.Context, *app, error) {
	cfg, err := config.Load(f.overrides())
	if err != nil {
		return ctx, nil, err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return ctx, nil, fmt.Errorf("init logger: %w", err)
	}
	ctx = logger.WithLogger(ctx, log)

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	if a.metrics, err = metrics.New(a.registry); err != nil {
		return ctx, nil, err
	}

	// A rules file wins over the database when both are configured.
	if cfg.RulesFile != "" {
		if a.files, err = memory.LoadFile(cfg.RulesFile); err != nil {
			return ctx, nil, err
		}
		a.store = a.files
		log.Debugw("using rules file", "path", cfg.RulesFile)
	} else {
		if a.pool, err = postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL)); err != nil {
			return ctx, nil, err
		}
		if err := metrics.RegisterPool(a.registry, a.pool.Stats); err != nil {
			a.pool.Close()
			return ctx, nil, err
		}
		a.store = rule_repo.NewStore(postgres.NewTxManager(a.pool))
		log.Debug("using database rule store")
	}

	a.cache = cache.NewRuleSetCache(cache.WithMetrics(a.metrics))
	a.validator, err = posting.NewValidator(posting.Config{
		Resolver: fieldrules.NewResolver(a.store, a.cache),
		Balance:  posting.NewBalanceChecker(cfg.BalanceOptions()...),
		Policy:   cfg.Policy(),
		Observer: a.metrics,
		Logger:   log,
	})
	if err != nil {
		a.Close()
		return ctx, nil, err
	}
	return ctx, a, nil
}

// Close releases the database pool and flushes the logger.
func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.log.Sync()
}
