package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/nodescan/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "nodescan"

	// DefaultWorkers is the number of shards a parallel scan splits the range into.
	DefaultWorkers = 10

	// DefaultVerifyConcurrency is the number of link HEAD requests in flight per page.
	DefaultVerifyConcurrency = 16

	// DefaultTimeout applies to every probe, page fetch and link check.
	DefaultTimeout = 5 * time.Second

	// DefaultUserAgent identifies nodescan in HTTP requests so site
	// operators can recognise scanner traffic in their logs.
	DefaultUserAgent = "nodescan/1.0 (+https://github.com/nao1215/nodescan)"
)

// Config holds all configuration options for a scan.
// It is populated from CLI flags and the optional config file and passed
// down explicitly; there is no global configuration state.
type Config struct {
	// Site is the base URL of the site. Node pages live at Site + "node/<id>/".
	Site string

	// StartNode is the first node id to scan.
	StartNode int

	// EndNode is one past the last node id to scan.
	EndNode int

	// Mode selects which findings are reported.
	Mode model.FilterMode

	// Strategy selects sequential or parallel scheduling.
	Strategy model.Strategy

	// Workers is the number of shards of a parallel scan.
	Workers int

	// VerifyConcurrency bounds concurrent link checks on one page.
	VerifyConcurrency int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// OutputPrefix is prepended to the report file name.
	// Derived from the site path when empty.
	OutputPrefix string

	// ReportDir is the directory report files are appended to.
	// Defaults to the user's Desktop.
	ReportDir string

	// StateDir holds progress.txt and progress.bin.
	StateDir string

	// ListDir holds exclusion_list.json and social_media_domains.json.
	ListDir string

	// DBDir is the directory of the scan history database.
	DBDir string

	// SaveToDB records every processed node in the history database.
	SaveToDB bool

	// MetricsAddr, when set, exposes Prometheus metrics on this address during the scan.
	MetricsAddr string

	// LogFile, when set, also writes logs to this file with size based rotation.
	LogFile string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, .nodescan is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the per-site settings loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Mode:              model.ModeBoth,
		Strategy:          model.StrategySequential,
		Workers:           DefaultWorkers,
		VerifyConcurrency: DefaultVerifyConcurrency,
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		ReportDir:         DefaultReportDir(),
		StateDir:          XDGStateDir(),
		ListDir:           XDGConfigDir(),
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
	}
}

// ScanRange returns the immutable scan description derived from c.
func (c *Config) ScanRange() model.ScanRange {
	return model.ScanRange{
		Site:         c.Site,
		StartNode:    c.StartNode,
		EndNode:      c.EndNode,
		Mode:         c.Mode,
		Strategy:     c.Strategy,
		OutputPrefix: c.OutputPrefix,
	}
}

// ExclusionListPath returns the path of the exclusion list file.
func (c *Config) ExclusionListPath() string {
	return filepath.Join(c.ListDir, ExclusionListFile)
}

// SocialDomainListPath returns the path of the social domain list file.
func (c *Config) SocialDomainListPath() string {
	return filepath.Join(c.ListDir, SocialDomainListFile)
}

// XDGDataDir returns the XDG data directory for nodescan.
// On Linux: ~/.local/share/nodescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for nodescan.
// On Linux: ~/.config/nodescan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for nodescan, where
// checkpoints are kept.
// On Linux: ~/.local/state/nodescan
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultReportDir returns the user's Desktop directory, or a reports
// directory below the data directory when no Desktop is known.
func DefaultReportDir() string {
	if xdg.UserDirs.Desktop != "" {
		return xdg.UserDirs.Desktop
	}
	return filepath.Join(XDGDataDir(), "reports")
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Site == "" {
		return ErrNoSite
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.VerifyConcurrency <= 0 {
		return ErrInvalidVerifyConcurrency
	}
	if c.ReportDir == "" && c.Mode.WritesReport() {
		return ErrNoReportDir
	}
	if c.StateDir == "" {
		return ErrNoStateDir
	}
	return c.ScanRange().Validate()
}
