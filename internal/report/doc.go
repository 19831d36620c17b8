// Package report writes scan findings.
//
// FileSink appends one block per reported node to the run's text report,
// <prefix>result_<YYYYMMDD>.txt, and sorts the blocks by node id once a
// parallel scan has finished:
//
//	base_url: https://example.com/dept/node/12/
//	    acc_problem:
//	        1. https://example.com/dept/logo.png
//	    broken_urls:
//	        1. https://example.com/dept/old-page
//
// The MarkdownWriter and CSVWriter export recorded runs from the scan
// history. Both implement Writer.
package report
