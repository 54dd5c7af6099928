// Package remote interprets sql://<remote-id>/?select=... pseudo-URLs
// (spec.md §4.7): it runs the select fragment against the named
// remote, off the cooperative request path, maps the returned scalar
// values to subject DNs, and caches the result per remote id until the
// remote's configured query is next modified.
package remote

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sgroupald/sgroupald/internal/driver/config"
	"github.com/sgroupald/sgroupald/internal/sgerror"
)

// SubjectLookup resolves the scalar values a remote query returned
// into subject DNs, against whatever subject sources are configured.
// Supplied by the caller so this package has no direct dependency on
// internal/directory.
type SubjectLookup func(ctx context.Context, values []string) ([]string, error)

// Resolver resolves sql:// remote queries to subject DNs, caching the
// per-remote result and collapsing concurrent identical lookups.
type Resolver struct {
	pool    *connectionPool
	cache   *Cache
	lookup  SubjectLookup
	sem     chan struct{} // bounds concurrent blocking SQL dispatch
	sf      singleflight.Group
	log     *logrus.Logger
	remotes map[string]config.RemoteConfig
}

// maxConcurrentQueries bounds how many blocking remote SQL calls can
// be in flight at once, so a burst of cascades cannot exhaust the
// process's connections.
const maxConcurrentQueries = 8

// NewResolver builds a Resolver against the given remotes, dispatching
// blocking queries to a bounded worker pool and caching results in
// cache.
func NewResolver(remotes map[string]config.RemoteConfig, lookup SubjectLookup, cache *Cache, log *logrus.Logger) *Resolver {
	return &Resolver{
		pool:    newConnectionPool(remotes, log),
		cache:   cache,
		lookup:  lookup,
		sem:     make(chan struct{}, maxConcurrentQueries),
		log:     log,
		remotes: remotes,
	}
}

// Close releases pooled remote connections.
func (r *Resolver) Close() error { return r.pool.Close() }

// Resolve resolves a sql:// remote-query URL (spec.md §4.7) to the
// subject DNs it currently denotes, consulting the cache first.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) ([]string, error) {
	q, err := ParseQuery(rawURL)
	if err != nil {
		return nil, err
	}
	if _, ok := r.remotes[q.RemoteID]; !ok {
		return nil, sgerror.Newf(sgerror.Remote, "no remote configured with id %q", q.RemoteID)
	}

	if dns, ok := r.cache.Get(q.RemoteID); ok {
		return dns, nil
	}

	// singleflight collapses concurrent identical cache misses into
	// one blocking SQL round-trip.
	v, err, _ := r.sf.Do(q.RemoteID, func() (interface{}, error) {
		dns, err := r.resolveUncached(ctx, q)
		if err != nil {
			return nil, err
		}
		r.cache.Set(q.RemoteID, dns)
		return dns, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// resolveUncached dispatches the blocking SQL query and subject lookup
// off the cooperative request path via a bounded worker pool, joining
// the result with errgroup.
func (r *Resolver) resolveUncached(ctx context.Context, q Query) ([]string, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.sem }()

	g, gctx := errgroup.WithContext(ctx)
	var values []string
	g.Go(func() error {
		vals, err := r.pool.runSelect(gctx, q.RemoteID, q.Select)
		if err != nil {
			return sgerror.Wrapf(sgerror.Remote, err, "remote %q query failed", q.RemoteID)
		}
		values = vals
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(values) == 0 {
		return nil, nil
	}
	dns, err := r.lookup(ctx, values)
	if err != nil {
		return nil, sgerror.Wrapf(sgerror.Remote, err, "remote %q: resolving subjects", q.RemoteID)
	}
	return dns, nil
}

// Invalidate clears remoteID's cached result, called after
// modify_remote_sql_query changes its configured query.
func (r *Resolver) Invalidate(remoteID string) { r.cache.Invalidate(remoteID) }

// TestQuery dry-runs a select fragment against remoteID without
// touching the cache, backing the test_remote_query_sql endpoint
// (spec.md §3 supplemented features): it returns the resolved subject
// count without persisting anything.
func (r *Resolver) TestQuery(ctx context.Context, remoteID, selectSQL string) (count int, err error) {
	if _, ok := r.remotes[remoteID]; !ok {
		return 0, sgerror.Newf(sgerror.Remote, "no remote configured with id %q", remoteID)
	}
	values, err := r.pool.runSelect(ctx, remoteID, selectSQL)
	if err != nil {
		return 0, sgerror.Wrapf(sgerror.Remote, err, "remote %q test query failed", remoteID)
	}
	if len(values) == 0 {
		return 0, nil
	}
	dns, err := r.lookup(ctx, values)
	if err != nil {
		return 0, sgerror.Wrapf(sgerror.Remote, err, "remote %q: resolving subjects", remoteID)
	}
	return len(dedupe(dns)), nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
