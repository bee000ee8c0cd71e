// Package filter implements the ignore rules of the watcher. A changed path
// is dropped when any filter in a [Chain] excludes it: glob rules, excluded
// path prefixes, hidden path components, and editor backup or swap files.
//
// Glob rules follow gitignore-like anchoring. A rule without a slash (other
// than a trailing one) matches any path component, so ".git" ignores every
// ".git" directory. A rule containing a slash is anchored at the workspace
// root, so "./bin" only ignores the top-level bin directory. Rules also
// match everything below a matching directory. Globs are compiled with
// github.com/gobwas/glob and support "*", "**", "?", "[...]" and "{a,b}".
package filter
