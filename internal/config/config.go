package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// ProjectFileName is the default project settings file.
const ProjectFileName = "localize.toml"

// Config holds process settings read from the environment.
type Config struct {
	GeminiAPIKey          string
	DatabaseURL           string
	Neo4jURI              string
	Neo4jUser             string
	Neo4jPassword         string
	WorkerCount           int
	BatchSize             int
	MaxConcurrentAPICalls int
	TranslationModel      string
	// Store selects where translation entries live: StoreFile or StorePostgres.
	Store string
	// ProjectFile is the path of the project settings file.
	ProjectFile string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:           getEnv("DATABASE_URL", "postgres://localhost:5432/localize?sslmode=disable"),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		WorkerCount:           getEnvInt("WORKER_COUNT", 8),
		BatchSize:             getEnvInt("BATCH_SIZE", 20),
		MaxConcurrentAPICalls: getEnvInt("MAX_CONCURRENT_API_CALLS", 4),
		TranslationModel:      getEnv("TRANSLATION_MODEL", "gemini-2.5-flash"),
		Store:                 strings.ToLower(getEnv("LOCALIZE_STORE", StoreFile)),
		ProjectFile:           getEnv("LOCALIZE_PROJECT", ProjectFileName),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-numeric setting")
		return fallback
	}
	return n
}

// Invariant extends the built-in invariance rules.
type Invariant struct {
	// Patterns are regular expressions; a literal matching one is never translatable.
	Patterns []string `toml:"patterns"`
	// Methods are call targets whose string arguments are never translatable:
	// "Type::Method", "Type.Method" or a bare method name.
	Methods []string `toml:"methods"`
}

// Project holds the settings of one mod project, read from localize.toml.
type Project struct {
	// Root is the directory holding the settings file; relative paths resolve against it.
	Root string `toml:"-"`

	SourceLocale string `toml:"source_locale"`
	// Strict turns unmarked strings into errors.
	Strict bool `toml:"strict"`
	// WarnUnmarked reports unmarked strings in non-strict code as warnings.
	WarnUnmarked bool `toml:"warn_unmarked"`

	// Listings are ildasm listing files or directories holding them.
	Listings []string `toml:"listings"`
	I18nDir  string   `toml:"i18n_dir"`
	L10nDir  string   `toml:"l10n_dir"`
	// Legacy is an optional key→text table whose keys are kept.
	Legacy string `toml:"legacy"`

	Invariant Invariant `toml:"invariant"`

	// Glossary maps a source term to its rendering per locale.
	Glossary map[string]map[string]string `toml:"glossary"`
}

// DefaultProject returns the settings used when no file exists.
func DefaultProject(root string) *Project {
	return &Project{
		Root:         root,
		SourceLocale: "en",
		I18nDir:      "i18n",
		L10nDir:      "l10n",
	}
}

// LoadProject reads project settings. A missing file yields the defaults;
// unknown keys, a bad locale or an unparsable file are errors.
func LoadProject(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project file: %w", err)
	}
	p := DefaultProject(filepath.Dir(abs))

	md, err := toml.DecodeFile(abs, p)
	if errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("path", abs).Msg("No project file, using defaults")
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("read %s: unknown settings: %s", path, strings.Join(keys, ", "))
	}
	if _, err := language.Parse(p.SourceLocale); err != nil {
		return nil, fmt.Errorf("read %s: source_locale %q: %w", path, p.SourceLocale, err)
	}
	for term, renderings := range p.Glossary {
		for locale := range renderings {
			if _, err := language.Parse(locale); err != nil {
				return nil, fmt.Errorf("read %s: glossary term %q: locale %q: %w", path, term, locale, err)
			}
		}
	}

	log.Debug().Str("path", abs).Bool("strict", p.Strict).Msg("Loaded project settings")
	return p, nil
}

// Resolve makes a project-relative path absolute.
func (p *Project) Resolve(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// I18nPath is the directory receiving the generated tables.
func (p *Project) I18nPath() string {
	return p.Resolve(p.I18nDir)
}

// TranslationsPath is the directory of the translation-entry files.
func (p *Project) TranslationsPath() string {
	return filepath.Join(p.Resolve(p.L10nDir), "translations")
}

// EditsPath is the directory of the pending-edit files.
func (p *Project) EditsPath() string {
	return filepath.Join(p.Resolve(p.L10nDir), "edits")
}

// ListingPaths returns the configured listing locations, resolved.
func (p *Project) ListingPaths() []string {
	out := make([]string, len(p.Listings))
	for i, l := range p.Listings {
		out[i] = p.Resolve(l)
	}
	return out
}
