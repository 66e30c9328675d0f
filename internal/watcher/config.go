package watcher

import "time"

// Config controls scanning and polling for the file watcher.
type Config struct {
	// Roots are the directories scanned every poll cycle.
	Roots []string `yaml:"roots" json:"roots,omitempty"`
	// PollInterval is how often every root is walked.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval,omitempty"`
	// IgnoreDirs names directories skipped entirely during the walk,
	// matched against the base name of each directory entry.
	IgnoreDirs []string `yaml:"ignore_dirs" json:"ignore_dirs,omitempty"`
	// MaxFileBytes skips (and logs) files larger than this during the
	// scan; zero means unbounded.
	MaxFileBytes int64 `yaml:"max_file_bytes" json:"max_file_bytes,omitempty"`
}

// DefaultConfig returns the watcher's defaults: a 30-second poll
// interval and the common set of directories nobody wants ingested as
// personal knowledge.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		IgnoreDirs: []string{
			".git",
			".mnemex",
			"node_modules",
			"vendor",
			"dist",
			"build",
			".next",
			"target",
			"bin",
			"obj",
			".terraform",
			".venv",
			".cache",
		},
	}
}
