package naming

import (
	"regexp"
	"strconv"
	"strings"
)

// ParseRule pairs a compiled regex with an extraction function. Rules are
// evaluated in order by [Resolve] against the file name; first match with a
// non-empty title wins.
type ParseRule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(matches []string) TitleInfo
}

var (
	reSeriesEpisode = regexp.MustCompile(`(?i)^(.*?)[.\s]S(\d{2})E(\d{2})`)
	reMovieYear     = regexp.MustCompile(`^(.*?)[.\s](\d{4})[.\s]`)
)

// Rules is the ordered file-name rule table.
var Rules = []ParseRule{
	{
		Name:    "series-sxxexx",
		Pattern: reSeriesEpisode,
		Extract: func(m []string) TitleInfo {
			return TitleInfo{Kind: KindSeries, Name: normalize(m[1]), Season: atoi(m[2]), Episode: atoi(m[3])}
		},
	},
	{
		Name:    "movie-year",
		Pattern: reMovieYear,
		Extract: func(m []string) TitleInfo {
			return TitleInfo{Kind: KindMovie, Name: normalize(m[1]), Year: atoi(m[2])}
		},
	},
}

var sepReplacer = strings.NewReplacer(".", " ", "_", " ")

// normalize turns release-style separators into spaces and trims.
func normalize(s string) string { return strings.TrimSpace(sepReplacer.Replace(s)) }

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// --- Directory heuristics ---

var (
	movieDirWords  = map[string]bool{"movies": true, "films": true}
	seriesDirWords = map[string]bool{"series": true, "tv": true, "shows": true}
)

var reSeasonDir = regexp.MustCompile(`(?i)^(season|saison)[\s._-]*\d*$|^s\d{1,2}$`)

var reWordSplit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// dirWords returns the lowercase words of a directory segment.
func dirWords(segment string) []string {
	return reWordSplit.Split(strings.ToLower(segment), -1)
}

func containsWord(segments []string, set map[string]bool) bool {
	for _, seg := range segments {
		for _, w := range dirWords(seg) {
			if set[w] {
				return true
			}
		}
	}
	return false
}

// seriesFromSeasonDir returns the segment right before the first season
// directory, or "" when there is none.
func seriesFromSeasonDir(segments []string) string {
	for i, seg := range segments {
		if reSeasonDir.MatchString(strings.TrimSpace(seg)) {
			if i == 0 {
				return ""
			}
			return strings.TrimSpace(segments[i-1])
		}
	}
	return ""
}
