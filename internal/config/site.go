package config

import (
	"fmt"
	"strings"

	"github.com/nao1215/nodescan/internal/model"
)

// SiteConfig holds settings for one site.
type SiteConfig struct {
	// OutputPrefix overrides the report file prefix derived from the site path.
	OutputPrefix string `yaml:"outputPrefix,omitempty"`

	// Workers overrides the number of parallel shards.
	Workers int `yaml:"workers,omitempty"`

	// Mode overrides the filter mode ("all", "accessibility", "broken", "both" or 0-3).
	Mode string `yaml:"mode,omitempty"`

	// Strategy is "sequential" or "parallel".
	Strategy string `yaml:"strategy,omitempty"`

	// Exclude lists absolute URLs that are never reported, in addition
	// to exclusion_list.json.
	Exclude []string `yaml:"exclude,omitempty"`

	// SocialDomains lists extra domain substrings whose links are skipped.
	SocialDomains []string `yaml:"socialDomains,omitempty"`
}

// File represents the structure of the .nodescan configuration file.
type File struct {
	// Sites maps site base URLs to their configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults applies to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for site merged over the defaults.
// The site key matches with or without a trailing slash.
// Scalar settings are overridden, list settings are combined.
func (cf *File) GetSiteConfig(site string) SiteConfig {
	result := cf.Defaults
	result.Exclude = append([]string(nil), cf.Defaults.Exclude...)
	result.SocialDomains = append([]string(nil), cf.Defaults.SocialDomains...)

	siteConfig, ok := cf.Sites[site]
	if !ok {
		siteConfig, ok = cf.Sites[strings.TrimSuffix(site, "/")]
	}
	if !ok {
		return result
	}

	if siteConfig.OutputPrefix != "" {
		result.OutputPrefix = siteConfig.OutputPrefix
	}
	if siteConfig.Workers != 0 {
		result.Workers = siteConfig.Workers
	}
	if siteConfig.Mode != "" {
		result.Mode = siteConfig.Mode
	}
	if siteConfig.Strategy != "" {
		result.Strategy = siteConfig.Strategy
	}
	result.Exclude = append(result.Exclude, siteConfig.Exclude...)
	result.SocialDomains = append(result.SocialDomains, siteConfig.SocialDomains...)
	return result
}

// ParseStrategy converts the config file spelling of a strategy.
func ParseStrategy(s string) (model.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sequential", "slow", "0":
		return model.StrategySequential, nil
	case "parallel", "fast", "1":
		return model.StrategyParallel, nil
	default:
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidStrategy, s)
	}
}
