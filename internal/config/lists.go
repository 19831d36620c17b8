package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// ExclusionListFile holds absolute URLs that are never reported.
	ExclusionListFile = "exclusion_list.json"

	// SocialDomainListFile holds domain substrings whose links are skipped.
	SocialDomainListFile = "social_media_domains.json"
)

// DefaultSocialDomains is used when social_media_domains.json does not exist yet.
var DefaultSocialDomains = []string{
	"facebook.com",
	"instagram.com",
	"linkedin.com",
	"pinterest.com",
	"snapchat.com",
	"tiktok.com",
	"twitter.com",
	"x.com",
	"youtube.com",
}

// ExclusionSet is the set of absolute URLs suppressed from accessibility reports.
type ExclusionSet struct {
	urls mapset.Set[string]
}

// NewExclusionSet returns a set holding urls.
func NewExclusionSet(urls ...string) *ExclusionSet {
	return &ExclusionSet{urls: mapset.NewSet(urls...)}
}

// Contains reports whether url is excluded. Matching is exact.
func (s *ExclusionSet) Contains(url string) bool {
	return s != nil && s.urls.Contains(url)
}

// Len returns the number of excluded URLs.
func (s *ExclusionSet) Len() int {
	return s.urls.Cardinality()
}

// Add adds urls to the set.
func (s *ExclusionSet) Add(urls ...string) {
	s.urls.Append(urls...)
}

// SocialDomainSet is the set of domain substrings whose links are skipped entirely.
type SocialDomainSet struct {
	domains mapset.Set[string]
}

// NewSocialDomainSet returns a set holding domains.
func NewSocialDomainSet(domains ...string) *SocialDomainSet {
	return &SocialDomainSet{domains: mapset.NewSet(domains...)}
}

// Matches reports whether href contains any domain of the set.
func (s *SocialDomainSet) Matches(href string) bool {
	if s == nil {
		return false
	}
	matched := false
	s.domains.Each(func(domain string) bool {
		if domain != "" && strings.Contains(href, domain) {
			matched = true
			return true
		}
		return false
	})
	return matched
}

// Len returns the number of domains.
func (s *SocialDomainSet) Len() int {
	return s.domains.Cardinality()
}

// Add adds domains to the set.
func (s *SocialDomainSet) Add(domains ...string) {
	s.domains.Append(domains...)
}

// LoadExclusionSet reads the exclusion list at path.
// A missing file yields an empty set.
func LoadExclusionSet(path string) (*ExclusionSet, error) {
	values, err := LoadList(path, nil)
	if err != nil {
		return nil, err
	}
	return &ExclusionSet{urls: values}, nil
}

// LoadSocialDomainSet reads the social domain list at path.
// A missing file yields DefaultSocialDomains.
func LoadSocialDomainSet(path string) (*SocialDomainSet, error) {
	values, err := LoadList(path, DefaultSocialDomains)
	if err != nil {
		return nil, err
	}
	return &SocialDomainSet{domains: values}, nil
}

// LoadList reads a JSON list file. The file is either an array of strings or
// an object whose keys are the values. When the file does not exist the set
// holds defaults.
func LoadList(path string, defaults []string) (mapset.Set[string], error) {
	data, err := os.ReadFile(path) //nolint:gosec // list paths come from configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mapset.NewSet(defaults...), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return mapset.NewSet[string](), nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return mapset.NewSet(list...), nil
	}

	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedList, path, err)
	}
	set := mapset.NewSet[string]()
	for key := range object {
		set.Add(key)
	}
	return set, nil
}

// SaveList writes values to path as a sorted JSON array.
func SaveList(path string, values mapset.Set[string]) error {
	sorted := mapset.Sorted(values)
	if sorted == nil {
		sorted = []string{}
	}
	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create list directory: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// AddToList adds values to the list file at path and returns how many were new.
func AddToList(path string, defaults []string, values ...string) (int, error) {
	set, err := LoadList(path, defaults)
	if err != nil {
		return 0, err
	}
	before := set.Cardinality()
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set.Add(v)
		}
	}
	if err := SaveList(path, set); err != nil {
		return 0, err
	}
	return set.Cardinality() - before, nil
}

// RemoveFromList removes values from the list file at path and returns how many were present.
func RemoveFromList(path string, defaults []string, values ...string) (int, error) {
	set, err := LoadList(path, defaults)
	if err != nil {
		return 0, err
	}
	before := set.Cardinality()
	for _, v := range values {
		set.Remove(strings.TrimSpace(v))
	}
	if err := SaveList(path, set); err != nil {
		return 0, err
	}
	return before - set.Cardinality(), nil
}
