// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// tokenizer, vocabulary, corpus, entity, topic and distance stages as well as
// the backing services (Postgres, Redis, Kafka, metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/venue-topics/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Entities   EntitiesConfig   `yaml:"entities"`
	Topics     TopicsConfig     `yaml:"topics"`
	Distance   DistanceConfig   `yaml:"distance"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TokenizerConfig selects the tokenizer variant and its stopword sets.
// ReSplit keeps the uniform word-boundary re-split after the variant split;
// DropURLs discards URLs recognised by the social variant before that re-split.
type TokenizerConfig struct {
	Variant         string   `yaml:"variant"`
	Language        string   `yaml:"language"`
	CustomStopwords []string `yaml:"customStopwords"`
	StoplistPath    string   `yaml:"stoplistPath"`
	ReSplit         bool     `yaml:"reSplit"`
	DropURLs        bool     `yaml:"dropURLs"`
}

// VocabularyConfig controls document-frequency pruning.
type VocabularyConfig struct {
	NoBelow int     `yaml:"noBelow"`
	NoAbove float64 `yaml:"noAbove"`
	KeepN   int     `yaml:"keepN"`
}

// CorpusConfig locates the persisted project. Rebuild forces fresh passes over
// the document stream even if a persisted corpus exists.
type CorpusConfig struct {
	DataDir string `yaml:"dataDir"`
	Project string `yaml:"project"`
	Rebuild bool   `yaml:"rebuild"`
}

// EntitiesConfig selects the entity aggregate store and how many entities
// feed a comparison.
type EntitiesConfig struct {
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlitePath"`
	TopN       int    `yaml:"topN"`
	Ordering   string `yaml:"ordering"`
}

// TopicsConfig locates precomputed topic vectors and sizes their caches.
type TopicsConfig struct {
	TablePath string        `yaml:"tablePath"`
	CacheSize int           `yaml:"cacheSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	UseRedis  bool          `yaml:"useRedis"`
}

// DistanceConfig controls the Hellinger matrix computation.
type DistanceConfig struct {
	Workers      int     `yaml:"workers"`
	Strict       bool    `yaml:"strict"`
	SumTolerance float64 `yaml:"sumTolerance"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical event names to their Kafka topic strings.
type KafkaTopics struct {
	CorpusBuilt       string `yaml:"corpusBuilt"`
	SimilarityResults string `yaml:"similarityResults"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the development defaults: social-text tokenizer, uniform re-split on, tokens kept only if they occur
// in at least two documents, top 30 venues compared.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tokenizer: TokenizerConfig{
			Variant:         "social",
			Language:        "english",
			CustomStopwords: []string{"http", "https", "co", "t", "amp"},
			ReSplit:         true,
		},
		Vocabulary: VocabularyConfig{
			NoBelow: 2,
			NoAbove: 1.0,
		},
		Corpus: CorpusConfig{
			DataDir: "data/projects",
			Project: "venues",
		},
		Entities: EntitiesConfig{
			Backend:    "sqlite",
			SQLitePath: "data/db/checkins.sqlite",
			TopN:       30,
			Ordering:   "lexicographic",
		},
		Topics: TopicsConfig{
			CacheSize: 4096,
			CacheTTL:  time.Hour,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "venues",
			User:            "venues",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				CorpusBuilt:       "corpus.built",
				SimilarityResults: "similarity.results",
			},
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
	}
}

// Validate checks cross-field constraints that would otherwise surface deep
// inside a pass.
func (c *Config) Validate() error {
	if c.Vocabulary.NoBelow < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "vocabulary.noBelow must be >= 0, got %d", c.Vocabulary.NoBelow)
	}
	if c.Vocabulary.NoAbove <= 0 || c.Vocabulary.NoAbove > 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "vocabulary.noAbove must be in (0, 1], got %v", c.Vocabulary.NoAbove)
	}
	if c.Vocabulary.KeepN < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "vocabulary.keepN must be >= 0, got %d", c.Vocabulary.KeepN)
	}
	if strings.TrimSpace(c.Corpus.Project) == "" {
		return apperrors.New(apperrors.ErrInvalidConfig, "corpus.project is required")
	}
	switch c.Entities.Backend {
	case "sqlite", "postgres":
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "entities.backend must be sqlite or postgres, got %q", c.Entities.Backend)
	}
	if c.Distance.Workers < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "distance.workers must be >= 0, got %d", c.Distance.Workers)
	}
	if c.Distance.SumTolerance < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "distance.sumTolerance must be >= 0, got %v", c.Distance.SumTolerance)
	}
	return nil
}

// applyEnvOverrides reads VT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VT_TOKENIZER_VARIANT"); v != "" {
		cfg.Tokenizer.Variant = v
	}
	if v := os.Getenv("VT_CORPUS_DATA_DIR"); v != "" {
		cfg.Corpus.DataDir = v
	}
	if v := os.Getenv("VT_CORPUS_PROJECT"); v != "" {
		cfg.Corpus.Project = v
	}
	if v := os.Getenv("VT_CORPUS_REBUILD"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Corpus.Rebuild = b
		}
	}
	if v := os.Getenv("VT_ENTITIES_BACKEND"); v != "" {
		cfg.Entities.Backend = v
	}
	if v := os.Getenv("VT_ENTITIES_SQLITE_PATH"); v != "" {
		cfg.Entities.SQLitePath = v
	}
	if v := os.Getenv("VT_ENTITIES_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Entities.TopN = n
		}
	}
	if v := os.Getenv("VT_TOPICS_TABLE_PATH"); v != "" {
		cfg.Topics.TablePath = v
	}
	if v := os.Getenv("VT_DISTANCE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Distance.Workers = n
		}
	}
	if v := os.Getenv("VT_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("VT_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("VT_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("VT_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("VT_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("VT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("VT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VT_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("VT_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
}

// Stoplist is an extra stopword file: `terms: [...]`.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file.
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stoplist %s: %w", path, err)
	}
	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("parsing stoplist %s: %w", path, err)
	}
	return &sl, nil
}
