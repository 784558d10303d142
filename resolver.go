package mcedia

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/tobyprime/Mcedia-sub001/generic"
)

var (
	ErrDuplicateResolver = errors.New("duplicate resolver name")
	ErrInvalidResolver   = errors.New("invalid resolver")
	ErrNoMatch           = errors.New("no resolver matched the URL")
	ErrUnknownResolver   = errors.New("unknown resolver")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// Request carries one resolution request through a Resolver.
type Request struct {
	// URL is the raw page/share URL (possibly share text containing a URL).
	URL string
	// Quality is the desired quality ceiling in the platform's id scale; 0 means resolver default.
	Quality int
	// Cookie is an opaque auth cookie threaded through from the host.
	Cookie string
	// Report publishes an intermediate, display-ready status string. May be nil.
	Report func(status string)
}

// Progress publishes an intermediate status if a Report sink is attached.
func (r Request) Progress(status string) {
	if r.Report != nil {
		r.Report(status)
	}
}

// A Resolver recognizes the URL shape of one platform and knows how to turn such a URL into
// playable stream information.
type Resolver interface {
	Name() string
	// IsSupported is a pure predicate on the URL shape: fast, pattern/prefix matching only, no I/O.
	IsSupported(rawURL string) bool
	// Resolve fetches and parses stream information for a URL that IsSupported accepted. The
	// returned error is diagnostic; the Pipeline converts it to a display status and never lets it
	// reach the caller of Resolve(url).
	Resolve(ctx context.Context, req Request) (*MediaInfo, error)
}

// A Registry is an ordered collection of Resolvers. Ordering is a static priority/tie-break rule:
// the first resolver (in priority order) whose IsSupported accepts a URL wins, and no resolver
// after it is consulted. URL-shape predicates are mutually exclusive by platform in practice, so
// first-match is sufficient and deterministic, which matters for testability.
//
// A Registry is populated during initialization and read-only afterwards.
type Registry struct {
	resolvers   []*registeredResolver
	resolverMap map[string]*registeredResolver
}

type registeredResolver struct {
	Resolver
	priority int16
}

// Add registers a Resolver with default priority.
func (r *Registry) Add(res Resolver) error {
	return r.AddPriority(res, PriorityDefault)
}

// AddPriority registers a Resolver; lower (including negative) priority means matching earlier.
func (r *Registry) AddPriority(res Resolver, priority int16) error {
	if r.resolverMap == nil {
		r.resolverMap = make(map[string]*registeredResolver)
	}
	if res == nil || res.Name() == "" {
		return ErrInvalidResolver
	}
	if _, ok := r.resolverMap[res.Name()]; ok {
		return ErrDuplicateResolver
	}
	entry := &registeredResolver{Resolver: res, priority: priority}
	r.resolverMap[res.Name()] = entry
	r.resolvers = append(r.resolvers, entry)
	r.sortByPriority()
	return nil
}

// MustAdd wraps Add but panics if there is an error.
func (r *Registry) MustAdd(res Resolver) {
	generic.Unwrap_(r.Add(res))
}

// MustAddPriority wraps AddPriority but panics if there is an error.
func (r *Registry) MustAddPriority(res Resolver, priority int16) {
	generic.Unwrap_(r.AddPriority(res, priority))
}

// List returns the names of registered resolvers in priority order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.resolvers))
	for _, res := range r.resolvers {
		names = append(names, res.Name())
	}
	return names
}

// Lookup returns the named Resolver.
func (r *Registry) Lookup(name string) (Resolver, error) {
	if res, ok := r.resolverMap[name]; ok {
		return res.Resolver, nil
	}
	return nil, ErrUnknownResolver
}

// Match returns the first resolver (in priority order) that supports the URL, or ErrNoMatch. A
// resolver whose IsSupported panics is skipped, with its panic recorded in the returned error, so
// one broken predicate can never take down resolution for everyone else.
func (r *Registry) Match(rawURL string) (Resolver, error) {
	var result error = ErrNoMatch
	for _, res := range r.resolvers {
		supported, err := r.checkSupported(res, rawURL)
		if err != nil {
			result = multierror.Append(result, multierror.Prefix(err, fmt.Sprintf("[%v]", res.Name())))
			continue
		}
		if supported {
			return res.Resolver, nil
		}
	}
	return nil, result
}

// IsSupported reports whether any registered resolver recognizes the URL. Predicate-only: no
// resolution work is started.
func (r *Registry) IsSupported(rawURL string) bool {
	res, err := r.Match(rawURL)
	return err == nil && res != nil
}

func (r *Registry) checkSupported(res Resolver, rawURL string) (supported bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			supported = false
			err = fmt.Errorf("IsSupported panicked: %v", p)
		}
	}()
	return res.IsSupported(rawURL), nil
}

func (r *Registry) sortByPriority() {
	sort.SliceStable(r.resolvers, func(i, j int) bool {
		return r.resolvers[i].priority < r.resolvers[j].priority
	})
}
