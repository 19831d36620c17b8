// Package config provides configuration structures and utilities for nodescan.
// It defines the scan options, the optional .nodescan YAML file with per-site
// overrides, the XDG directory layout and the JSON ignore lists
// (exclusion_list.json and social_media_domains.json).
package config
