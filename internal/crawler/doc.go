// Package crawler fetches node pages and finds their accessibility problems
// and outbound links.
//
// The work is split in two:
//   - Parser classifies an already parsed document without any network access
//   - Analyzer fetches the page, runs the Parser and verifies the collected
//     links with a linkcheck.Verifier
//
// # Classification rules
//
// Every <img> whose alt attribute is missing or blank is an accessibility
// problem, reported by its resolved src. Every <a> with a non-empty href is
// considered next, in document order:
//   - tel, mailto and #fragment links are ignored
//   - links containing a social media domain are ignored
//   - a link without visible text is an accessibility problem, unless its
//     resolved URL contains "forward?path=node", in which case it is ignored
//   - every link that was not ignored is verified
//
// URLs in the exclusion set are never reported as accessibility problems,
// but excluded links are still verified.
package crawler
