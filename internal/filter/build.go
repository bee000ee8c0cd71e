package filter

// Options selects the filters that make up the watcher's ignore chain.
type Options struct {
	// Root is the workspace root. Anchored rules and relative excludes are
	// resolved against it.
	Root string

	// WatchRoots are the watched directories; hidden components are
	// detected below them.
	WatchRoots []string

	// Rules are glob ignore rules. Nil selects DefaultRules; an empty
	// non-nil slice disables glob rules.
	Rules []string

	// Excludes are paths (absolute, or relative to Root) ignored with
	// everything below them.
	Excludes []string

	// KeepHidden disables the hidden path filter.
	KeepHidden bool

	// KeepBackups disables the editor artefact filter.
	KeepBackups bool
}

// Build assembles the ignore chain described by opts.
func Build(opts Options) (*Chain, error) {
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules
	}

	globs, err := NewGlobFilter(opts.Root, rules)
	if err != nil {
		return nil, err
	}

	filters := []Filter{globs}

	if len(opts.Excludes) > 0 {
		filters = append(filters, NewPrefixFilter(opts.Root, opts.Excludes))
	}

	if !opts.KeepHidden {
		filters = append(filters, NewHiddenFilter(opts.WatchRoots))
	}

	if !opts.KeepBackups {
		filters = append(filters, BackupFilter{})
	}

	return NewChain(filters...), nil
}
