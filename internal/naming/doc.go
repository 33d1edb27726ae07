// Package naming infers which series or movie a media path belongs to, so a
// deletion can be mapped to a library refresh.
//
// [Resolve] evaluates an ordered rule table against the file name, then
// falls back to directory-name heuristics. Results are best-effort: a miss
// yields KindUnknown and the file is simply not notified.
package naming
