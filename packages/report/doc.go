// Package report names and lists the HTML report artifacts produced by
// test runs.
//
// Report names have the form <prefix>-YYYY-MM-DD_HH-MM-SS-NNN.html, so
// sorting names lexicographically sorts them by creation time. The
// listing helpers return names newest first.
package report
