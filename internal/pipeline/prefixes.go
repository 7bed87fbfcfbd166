package pipeline

import (
	"context"
	"fmt"

	"github.com/jonathan/term-sync/internal/catalog"
)

// ResolvePrefixes returns the prefixes a run processes. only replaces the store's list
// (in the given order); resumeAfter drops everything up to and including that prefix.
func ResolvePrefixes(ctx context.Context, store catalog.Store, only []string, resumeAfter string) ([]string, error) {
	var prefixes []string
	if len(only) > 0 {
		prefixes = dedupe(only)
	} else {
		depts, err := store.ListDepartments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list departments: %w", err)
		}
		prefixes = catalog.Prefixes(depts)
	}

	if resumeAfter == "" {
		return prefixes, nil
	}
	for i, p := range prefixes {
		if p == resumeAfter {
			return prefixes[i+1:], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPrefix, resumeAfter)
}

// Partition splits prefixes into at most n contiguous, disjoint slices whose sizes differ
// by at most one.
func Partition(prefixes []string, n int) [][]string {
	if n > len(prefixes) {
		n = len(prefixes)
	}
	if n <= 0 {
		return nil
	}
	out := make([][]string, 0, n)
	size, extra := len(prefixes)/n, len(prefixes)%n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, prefixes[start:end])
		start = end
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
