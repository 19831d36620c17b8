// Package main provides the entry point for the nodescan CLI.
//
// nodescan walks the numbered node pages of a Drupal-style site
// (<site>node/<id>/), reports broken outbound links and basic accessibility
// problems, and can pause and resume long scans through an on-disk
// checkpoint.
//
// Usage:
//
//	nodescan scan <site> --start 1 --end 5000
//	nodescan resume --mode both
//
// See --help for all available options.
package main

// main is the entry point for nodescan.
func main() {
	Execute()
}
