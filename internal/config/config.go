package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TickersPath string
	CorpusPath  string
	OutputPath  string
	DBPath      string
	OutputDir   string

	CatalogSource string
	Tokenizer     string
	Tagger        string
	SVOExtractor  string
	TagCache      bool

	CoreNLPURL          string
	CoreNLPTimeoutMs    int
	CoreNLPRateLimitRPS int

	StanfordJavaHome string
	StanfordNERJar   string
	StanfordNERModel string

	SECTickersURL   string
	SECUserAgent    string
	SECRateLimitRPS int
	SECTimeoutMs    int

	AnnotateWorkers int
	ProgressEvery   int

	WatchIntervalSec int
	WatchDebounce    time.Duration

	LogLevel string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		TickersPath: getEnv("TICKERS_PATH", filepath.Join(cwd, "tickers.json")),
		CorpusPath:  getEnv("CORPUS_PATH", filepath.Join(cwd, "parsed_main.json")),
		OutputPath:  getEnv("OUTPUT_PATH", filepath.Join(cwd, "parsed_main_with_tickers.json")),
		DBPath:      getEnv("DB_PATH", filepath.Join(cwd, "data", "tickerize.db")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		CatalogSource: getEnv("CATALOG_SOURCE", "file"),
		Tokenizer:     getEnv("TOKENIZER", "prose"),
		Tagger:        getEnv("TAGGER", "stanford"),
		SVOExtractor:  getEnv("SVO_EXTRACTOR", "corenlp"),
		TagCache:      getEnvBool("TAG_CACHE", false),

		CoreNLPURL:          getEnv("CORENLP_URL", "http://localhost:9000"),
		CoreNLPTimeoutMs:    getEnvInt("CORENLP_TIMEOUT_MS", 30000),
		CoreNLPRateLimitRPS: getEnvInt("CORENLP_RATE_LIMIT_RPS", 20),

		StanfordJavaHome: getEnv("STANFORD_JAVA_HOME", getEnv("JAVAHOME", "/usr/lib/jvm/java-8-openjdk-amd64")),
		StanfordNERJar:   getEnv("STANFORD_NER_JAR", filepath.Join(cwd, "stanford-ner-2014-06-16", "stanford-ner.jar")),
		StanfordNERModel: getEnv("STANFORD_NER_MODEL", filepath.Join(cwd, "stanford-ner-2014-06-16", "classifiers", "english.all.3class.distsim.crf.ser.gz")),

		SECTickersURL:   getEnv("SEC_TICKERS_URL", "https://www.sec.gov/files/company_tickers.json"),
		SECUserAgent:    getEnv("SEC_USER_AGENT", ""),
		SECRateLimitRPS: getEnvInt("SEC_RATE_LIMIT_RPS", 5),
		SECTimeoutMs:    getEnvInt("SEC_TIMEOUT_MS", 30000),

		AnnotateWorkers: getEnvInt("ANNOTATE_WORKERS", 1),
		ProgressEvery:   getEnvInt("PROGRESS_EVERY", 5),

		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 60),
		WatchDebounce:    getEnvDuration("WATCH_DEBOUNCE", 500*time.Millisecond),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

// ValidateAnnotate checks the settings the annotate command depends on.
func (c Config) ValidateAnnotate() error {
	if err := c.Require("CORPUS_PATH", c.CorpusPath); err != nil {
		return err
	}
	if err := c.Require("OUTPUT_PATH", c.OutputPath); err != nil {
		return err
	}
	switch c.CatalogSource {
	case "file":
		if err := c.Require("TICKERS_PATH", c.TickersPath); err != nil {
			return err
		}
	case "db":
	default:
		return fmt.Errorf("unsupported catalog source: %s", c.CatalogSource)
	}
	if c.AnnotateWorkers < 1 {
		return fmt.Errorf("ANNOTATE_WORKERS must be >= 1, got %d", c.AnnotateWorkers)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
