// Package registry wires a loaded config.Config into the dependency
// bundle the HTTP server needs, the way keto's internal/driver.Registry
// builds its own namespace/relationtuple managers from config.Provider.
package registry

import (
	"context"
	"crypto/rand"
	"net/http"

	"github.com/ory/x/logrusx"

	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/driver/config"
	"github.com/sgroupald/sgroupald/internal/remote"
	"github.com/sgroupald/sgroupald/internal/sgroup"
	"github.com/sgroupald/sgroupald/internal/sgroupapi"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// Registry owns every long-lived dependency sgroupald needs: the
// shared logger, the remote resolver and its cache, the path
// configuration, and the cookie signing keys. Deps is rebuilt per
// Registry since it is cheap and carries no state of its own beyond
// these pointers.
type Registry struct {
	cfg    *config.Config
	log    *logrusx.Logger
	cache  *remote.Cache
	remote *remote.Resolver
	auth   *sgroupapi.Authenticator
	cas    sgroupapi.TicketValidator
	paths  *sgroup.PathConfig
}

// New builds a Registry from a loaded configuration. SubjectLookup
// resolves the scalar values a remote query's select fragment returns
// into subject DNs; a caller normally builds one against an already
// open directory session pool dedicated to subject lookups.
func New(ctx context.Context, cfg *config.Config, log *logrusx.Logger, lookup remote.SubjectLookup) (*Registry, error) {
	paths, err := cfg.PathConfig()
	if err != nil {
		return nil, err
	}

	cache := remote.NewCache()
	remoteResolver := remote.NewResolver(cfg.Remotes(), lookup, cache, log.Logger)

	hashKey := make([]byte, 32)
	if _, err := rand.Read(hashKey); err != nil {
		return nil, err
	}
	auth := sgroupapi.NewAuthenticator(cfg.TrustedAuthBearer(), hashKey, nil)
	cas := sgroupapi.NewCASValidator(cfg.CASPrefixURL(), http.DefaultClient)

	return &Registry{
		cfg:    cfg,
		log:    log,
		cache:  cache,
		remote: remoteResolver,
		auth:   auth,
		cas:    cas,
		paths:  paths,
	}, nil
}

// Close releases long-lived resources (pooled remote connections).
func (r *Registry) Close() error { return r.remote.Close() }

// flattenedAttrs builds the Mright -> directory attribute map from
// ldap.groups_flattened_attr plus the fixed member/reader/updater/admin
// set, defaulting any unconfigured Mright to its lowercase name.
func (r *Registry) flattenedAttrs() map[sgrights.Mright]string {
	cfgAttrs := r.cfg.LDAP().GroupsFlattenedAttr
	out := make(map[sgrights.Mright]string, len(sgrights.AllMrights()))
	for _, m := range sgrights.AllMrights() {
		if attr, ok := cfgAttrs[m.String()]; ok {
			out[m] = attr
			continue
		}
		out[m] = m.String()
	}
	return out
}

// HTTPDeps builds the sgroupapi.Deps handlers are wired against, each
// request opening its own directory session per spec.md §4.3.
func (r *Registry) HTTPDeps() *sgroupapi.Deps {
	ldap := r.cfg.LDAP()
	return &sgroupapi.Deps{
		Config:         r.cfg,
		Paths:          r.paths,
		GroupsDN:       ldap.GroupsDN,
		FlattenedAttrs: r.flattenedAttrs(),
		Auth:           r.auth,
		CAS:            r.cas,
		OpenDirectory: func(ctx context.Context) (directory.Adapter, error) {
			return directory.Open(directory.Config{
				URL:          ldap.URL,
				BindDN:       ldap.BindDN,
				BindPassword: ldap.BindPassword,
			}, r.log.Logger.WithContext(ctx))
		},
		RemoteResolver: r.remote,
		Cache:          r.cache,
		Log:            r.log.Logger,
	}
}

// Handler builds the full HTTP handler chain.
func (r *Registry) Handler() http.Handler {
	return sgroupapi.NewRouter(r.HTTPDeps())
}
