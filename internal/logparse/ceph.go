package logparse

import "regexp"

// Keyword prefilters, the equivalent of `zgrep -Ei` before extraction.
var (
	ScrubKeywords       = regexp.MustCompile(`(?i) scrub | deep-scrub `)
	SlowRequestKeywords = regexp.MustCompile(`(?i)slow requests`)
	SuicideKeywords     = regexp.MustCompile(`(?i)had suicide timed out`)
)

// subthreadRegex matches entries of ceph's recent-events dump ("   -12> 2016-..."),
// either at the start of a line or after a `path:` prefix.
var subthreadRegex = regexp.MustCompile(`(?:^|:)\s+-[0-9]*>`)

// daemonRegex matches the OSD log file name, in a path or in a `path:line` prefix.
var daemonRegex = regexp.MustCompile(`ceph-(osd\.[0-9]+)\.log`)

// sourceRegex matches the `path:` prefix `zgrep -H` puts before each line.
var sourceRegex = regexp.MustCompile(`^[^\s:]*ceph-osd\.[0-9]+\.log[^\s:]*:`)

// sosreportRegex extracts the host name from a sosreport extraction directory.
var sosreportRegex = regexp.MustCompile(`.+sosreport-(.+)\.[0-9]+-[0-9]+/var.+`)

// IsSubthreadLine reports whether line is part of a recent-events dump. Those lines
// repeat events that were already logged once and would be counted twice.
func IsSubthreadLine(line string) bool {
	return subthreadRegex.MatchString(line)
}

// DaemonFromPath returns the normalised daemon id ("osd.N") named by a log path.
func DaemonFromPath(path string) (string, bool) {
	m := daemonRegex.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// HostnameFromPath returns the host a sosreport was taken on, or "" when the path
// is not inside a sosreport.
func HostnameFromPath(path string) string {
	m := sosreportRegex.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripSource removes a leading `path:` prefix naming an OSD log.
func StripSource(line string) string {
	if loc := sourceRegex.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}
