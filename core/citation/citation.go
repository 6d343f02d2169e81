// Package citation shortens search-result URLs into stable ids that are cheap
// to carry through prompts, and expands them back when the final report is
// written.
package citation

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultPrefix is the base of every short id.
const DefaultPrefix = "https://search.com/id"

// Source is a citable search result.
type Source struct {
	ShortID string `json:"short_id"`
	URL     string `json:"original_url"`
	Label   string `json:"label"`
}

// Resolver maps URLs to short ids. It holds no state besides the prefix, so
// resolution is deterministic and safe for concurrent use.
type Resolver struct {
	prefix string
}

// NewResolver creates a Resolver. An empty prefix selects DefaultPrefix and a
// trailing slash is dropped.
func NewResolver(prefix string) *Resolver {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Resolver{prefix: prefix}
}

// Prefix returns the configured prefix.
func (r *Resolver) Prefix() string {
	return r.prefix
}

// ShortID builds the id for the index-th distinct URL of a batch.
func (r *Resolver) ShortID(batchID, index int) string {
	return r.prefix + "/" + strconv.Itoa(batchID) + "-" + strconv.Itoa(index)
}

// Resolve assigns each distinct URL the short id of its first position in
// urls. Repeated URLs share that id.
func (r *Resolver) Resolve(urls []string, batchID int) map[string]string {
	resolved := make(map[string]string, len(urls))
	for index, url := range urls {
		if _, seen := resolved[url]; !seen {
			resolved[url] = r.ShortID(batchID, index)
		}
	}
	return resolved
}

// Dedupe drops sources whose ShortID already appeared, keeping the first.
func Dedupe(sources []Source) []Source {
	seen := make(map[string]struct{}, len(sources))
	out := make([]Source, 0, len(sources))
	for _, source := range sources {
		if _, ok := seen[source.ShortID]; ok {
			continue
		}
		seen[source.ShortID] = struct{}{}
		out = append(out, source)
	}
	return out
}

// Expand replaces every short id found literally in text with its URL and
// returns the sources that were referenced, in their original order.
//
// Ids are substituted longest first so "…/1-1" is never matched inside an
// occurrence of "…/1-10".
func Expand(text string, sources []Source) (string, []Source) {
	sources = Dedupe(sources)

	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(sources[order[a]].ShortID) > len(sources[order[b]].ShortID)
	})

	cited := make([]bool, len(sources))
	for _, index := range order {
		source := sources[index]
		if source.ShortID == "" || !strings.Contains(text, source.ShortID) {
			continue
		}
		text = strings.ReplaceAll(text, source.ShortID, source.URL)
		cited[index] = true
	}

	kept := make([]Source, 0, len(sources))
	for index, source := range sources {
		if cited[index] {
			kept = append(kept, source)
		}
	}
	return text, kept
}
