package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"localize-from-source/internal/compiler"
	"localize-from-source/internal/config"
	"localize-from-source/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var projectFile string

	rootCmd := &cobra.Command{
		Use:   "localize",
		Short: "Build-time localization for Stardew Valley mods",
		Long: `Finds the player-facing strings of a compiled mod in its ildasm listings,
keeps i18n/default.json and the per-locale tables in step with the code, and
merges translator files back into the translation store.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&projectFile, "project", "", "Project settings file (default $LOCALIZE_PROJECT or localize.toml)")

	open := func() (*env, error) {
		return loadEnv(projectFile)
	}

	rootCmd.AddCommand(buildCmd(open))
	rootCmd.AddCommand(ingestCmd(open))
	rootCmd.AddCommand(translateCmd(open))
	rootCmd.AddCommand(glossaryCmd(open))
	rootCmd.AddCommand(checkCmd(open))
	rootCmd.AddCommand(lookupCmd(open))

	return rootCmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// env holds the settings and lazily opened connections of one command.
type env struct {
	cfg     *config.Config
	project *config.Project

	pgPool      *pgxpool.Pool
	neo4jDriver neo4j.DriverWithContext
}

func loadEnv(projectFile string) (*env, error) {
	cfg := config.Load()
	if projectFile == "" {
		projectFile = cfg.ProjectFile
	}
	project, err := config.LoadProject(projectFile)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, project: project}, nil
}

// postgres connects to PostgreSQL on first use.
func (e *env) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if e.pgPool != nil {
		return e.pgPool, nil
	}

	pgPool, err := pgxpool.New(ctx, e.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	e.pgPool = pgPool
	return pgPool, nil
}

// neo4j connects to Neo4j on first use.
func (e *env) neo4j(ctx context.Context) (neo4j.DriverWithContext, error) {
	if e.neo4jDriver != nil {
		return e.neo4jDriver, nil
	}

	driver, err := neo4j.NewDriverWithContext(e.cfg.Neo4jURI, neo4j.BasicAuth(e.cfg.Neo4jUser, e.cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")

	e.neo4jDriver = driver
	return driver, nil
}

func (e *env) close(ctx context.Context) {
	if e.pgPool != nil {
		e.pgPool.Close()
	}
	if e.neo4jDriver != nil {
		if err := e.neo4jDriver.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to close Neo4j driver")
		}
	}
}

// entries opens the configured translation-entry store.
func (e *env) entries(ctx context.Context) (store.Store, error) {
	switch e.cfg.Store {
	case config.StoreFile:
		return store.NewFileStore(e.project.TranslationsPath()), nil
	case config.StorePostgres:
		pool, err := e.postgres(ctx)
		if err != nil {
			return nil, err
		}
		ps := store.NewPostgresStore(pool)
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("LOCALIZE_STORE %q: want %q or %q", e.cfg.Store, config.StoreFile, config.StorePostgres)
	}
}

func (e *env) edits() *store.EditStore {
	return store.NewEditStore(e.project.EditsPath())
}

func (e *env) sourceTablePath() string {
	return filepath.Join(e.project.I18nPath(), compiler.SourceTableName)
}

// run executes fn with a signal-aware context and closes connections afterwards.
func run(open func() (*env, error), fn func(ctx context.Context, e *env) error) error {
	ctx, cancel := setupContext()
	defer cancel()

	e, err := open()
	if err != nil {
		return err
	}
	defer e.close(ctx)

	return fn(ctx, e)
}
