package upload

import (
	"context"
	"regexp"
	"strconv"
)

// Result is the outcome of one upload client invocation. ExitCode 0 is the
// only success signal; the counts are best-effort.
type Result struct {
	ExitCode    int
	Uploaded    int
	Skipped     int
	CountsKnown bool
	RawOutput   string
}

// Succeeded reports whether the client exited cleanly.
func (r Result) Succeeded() bool { return r.ExitCode == 0 }

// Client uploads one folder, recursively, to the photo server. A non-nil
// error means the client could not be run at all.
type Client interface {
	Upload(ctx context.Context, folder string) (Result, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, folder string) (Result, error)

func (f ClientFunc) Upload(ctx context.Context, folder string) (Result, error) {
	return f(ctx, folder)
}

var (
	uploadedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d+)[ \t]+(?:new[ \t]+)?(?:assets?[ \t]+|files?[ \t]+)?uploaded\b`),
		regexp.MustCompile(`(?i)\buploaded[ \t]+(\d+)\b`),
	}
	skippedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(\d+)[ \t]+(?:assets?[ \t]+|files?[ \t]+)?skipped\b`),
		regexp.MustCompile(`(?i)\bskipped[ \t]+(\d+)\b`),
		regexp.MustCompile(`(?i)\b(\d+)[ \t]+duplicates?\b`),
	}
)

// ParseCounts extracts "<n> uploaded" and "<n> skipped" style counts from
// client output. When a phrase appears more than once the last one wins,
// since clients print a summary after progress lines. ok is false when
// neither count was found.
func ParseCounts(output string) (uploaded, skipped int, ok bool) {
	u, uok := lastMatch(uploadedPatterns, output)
	s, sok := lastMatch(skippedPatterns, output)
	return u, s, uok || sok
}

func lastMatch(patterns []*regexp.Regexp, output string) (int, bool) {
	bestPos := -1
	value := 0
	for _, re := range patterns {
		for _, loc := range re.FindAllStringSubmatchIndex(output, -1) {
			if loc[0] < bestPos {
				continue
			}
			n, err := strconv.Atoi(output[loc[2]:loc[3]])
			if err != nil {
				continue
			}
			bestPos = loc[0]
			value = n
		}
	}
	return value, bestPos >= 0
}
