package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mnemex/internal/embedding"
	"mnemex/internal/orchestrator"
	"mnemex/internal/watcher"
)

// fileConfig is the optional mnemex.yaml overlay. Every field also has
// an environment variable fallback (resolved in resolveOptions below)
// and a hardcoded default; the overlay exists only to save repeating
// flags across invocations, never to gate core behavior.
type fileConfig struct {
	DataDir string `yaml:"data_dir"`

	Embedding struct {
		Provider       string `yaml:"provider"`
		OllamaEndpoint string `yaml:"ollama_endpoint"`
		OllamaModel    string `yaml:"ollama_model"`
		GenAIAPIKey    string `yaml:"genai_api_key"`
		GenAIModel     string `yaml:"genai_model"`
	} `yaml:"embedding"`

	Generative struct {
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
	} `yaml:"generative"`

	Watch struct {
		Roots        []string      `yaml:"roots"`
		PollInterval time.Duration `yaml:"poll_interval"`
		MaxFileBytes int64         `yaml:"max_file_bytes"`
	} `yaml:"watch"`
}

// options is the fully-resolved configuration the rest of the cmd
// layer wires into orchestrator.Config, embedding.Config, and
// watcher.Config. Nothing under internal/ ever reads os.Getenv itself
// — this struct is built once here and passed down.
type options struct {
	DataDir string
	DBPath  string
	BlobDir string

	Embedding          embedding.Config
	GenerativeEndpoint string
	GenerativeModel    string

	Watch watcher.Config

	Orchestrator orchestrator.Config
}

// loadFileConfig reads mnemex.yaml from the data directory if present.
// A missing file is not an error — every field defaults per resolveOptions.
func loadFileConfig(dataDir string) (fileConfig, error) {
	var fc fileConfig
	path := filepath.Join(dataDir, "mnemex.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// resolveOptions merges hardcoded defaults, the optional mnemex.yaml
// overlay, and environment variables (highest precedence) into the
// options the rest of the command wiring consumes.
func resolveOptions(dataDirFlag string) (options, error) {
	dataDir := firstNonEmpty(dataDirFlag, os.Getenv("MNEMEX_DATA_DIR"), defaultDataDir())

	fc, err := loadFileConfig(dataDir)
	if err != nil {
		return options{}, err
	}

	opt := options{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "mnemex.db"),
		BlobDir: filepath.Join(dataDir, "blobs"),
	}

	opt.Embedding = embedding.DefaultConfig()
	opt.Embedding.Provider = firstNonEmpty(os.Getenv("MNEMEX_EMBEDDING_PROVIDER"), fc.Embedding.Provider, opt.Embedding.Provider)
	opt.Embedding.OllamaEndpoint = firstNonEmpty(os.Getenv("MNEMEX_OLLAMA_ENDPOINT"), fc.Embedding.OllamaEndpoint, opt.Embedding.OllamaEndpoint)
	opt.Embedding.OllamaModel = firstNonEmpty(os.Getenv("MNEMEX_OLLAMA_MODEL"), fc.Embedding.OllamaModel, opt.Embedding.OllamaModel)
	opt.Embedding.GenAIAPIKey = firstNonEmpty(os.Getenv("MNEMEX_GENAI_API_KEY"), fc.Embedding.GenAIAPIKey, opt.Embedding.GenAIAPIKey)
	opt.Embedding.GenAIModel = firstNonEmpty(os.Getenv("MNEMEX_GENAI_MODEL"), fc.Embedding.GenAIModel, opt.Embedding.GenAIModel)

	opt.GenerativeEndpoint = firstNonEmpty(os.Getenv("MNEMEX_GENERATIVE_ENDPOINT"), fc.Generative.Endpoint, "http://localhost:11434")
	opt.GenerativeModel = firstNonEmpty(os.Getenv("MNEMEX_GENERATIVE_MODEL"), fc.Generative.Model, "llama3.2")

	opt.Watch = watcher.DefaultConfig()
	if roots := fc.Watch.Roots; len(roots) > 0 {
		opt.Watch.Roots = roots
	}
	if env := os.Getenv("MNEMEX_WATCH_ROOTS"); env != "" {
		opt.Watch.Roots = strings.Split(env, string(os.PathListSeparator))
	}
	if fc.Watch.PollInterval > 0 {
		opt.Watch.PollInterval = fc.Watch.PollInterval
	}
	if env := os.Getenv("MNEMEX_POLL_INTERVAL"); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			opt.Watch.PollInterval = d
		}
	}
	if fc.Watch.MaxFileBytes > 0 {
		opt.Watch.MaxFileBytes = fc.Watch.MaxFileBytes
	}
	if env := os.Getenv("MNEMEX_MAX_FILE_BYTES"); env != "" {
		if n, err := strconv.ParseInt(env, 10, 64); err == nil {
			opt.Watch.MaxFileBytes = n
		}
	}

	opt.Orchestrator = orchestrator.DefaultConfig()
	if env := os.Getenv("MNEMEX_MAX_BLOB_BYTES"); env != "" {
		if n, err := strconv.ParseInt(env, 10, 64); err == nil {
			opt.Orchestrator.MaxBlobBytes = n
		}
	}

	return opt, nil
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".mnemex")
	}
	return ".mnemex"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
