package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind discriminates [TitleInfo].
type Kind string

const (
	KindUnknown Kind = "unknown"
	KindSeries  Kind = "series"
	KindMovie   Kind = "movie"
)

// TitleInfo is the inferred library identity of a path. Season and Episode
// are set only for series (and may be zero when recovered from directories);
// Year only for movies.
type TitleInfo struct {
	Kind    Kind
	Name    string
	Season  int
	Episode int
	Year    int
}

// Unknown is the zero-information result.
var Unknown = TitleInfo{Kind: KindUnknown}

func (t TitleInfo) String() string {
	switch t.Kind {
	case KindSeries:
		if t.Season > 0 || t.Episode > 0 {
			return fmt.Sprintf("%s S%02dE%02d", t.Name, t.Season, t.Episode)
		}
		return t.Name
	case KindMovie:
		if t.Year > 0 {
			return fmt.Sprintf("%s (%d)", t.Name, t.Year)
		}
		return t.Name
	default:
		return "unknown"
	}
}

// Resolve infers a TitleInfo from a media path. File-name rules run first
// (see [Rules]); then the directory segments are checked for movie or
// series library folders. An empty recovered name always yields Unknown.
func Resolve(path string) TitleInfo {
	base := filepath.Base(path)
	for _, rule := range Rules {
		m := rule.Pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		if info := rule.Extract(m); info.Name != "" {
			return info
		}
	}

	segments := splitDirs(filepath.Dir(path))
	switch {
	case containsWord(segments, movieDirWords):
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.TrimSpace(stem) == "" {
			return Unknown
		}
		return TitleInfo{Kind: KindMovie, Name: stem}
	case containsWord(segments, seriesDirWords):
		if name := seriesFromSeasonDir(segments); name != "" {
			return TitleInfo{Kind: KindSeries, Name: name}
		}
	}
	return Unknown
}

func splitDirs(dir string) []string {
	var out []string
	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if seg != "" && seg != "." {
			out = append(out, seg)
		}
	}
	return out
}
