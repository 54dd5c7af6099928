package sgroupapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/sgroupald/sgroupald/internal/audit"
	"github.com/sgroupald/sgroupald/internal/authz"
	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/driver/config"
	"github.com/sgroupald/sgroupald/internal/flatten"
	"github.com/sgroupald/sgroupald/internal/principal"
	"github.com/sgroupald/sgroupald/internal/remote"
	"github.com/sgroupald/sgroupald/internal/sgroup"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// Deps bundles everything a request handler needs: configuration, the
// per-request directory session factory, the shared remote resolver
// and cache, and the logger — the same "one registry, many handlers"
// shape keto's internal/driver/server wires its route handlers
// against.
type Deps struct {
	Config         *config.Config
	Paths          *sgroup.PathConfig
	GroupsDN       string
	FlattenedAttrs map[sgrights.Mright]string
	Auth           *Authenticator
	CAS            TicketValidator
	OpenDirectory  func(ctx context.Context) (directory.Adapter, error)
	RemoteResolver *remote.Resolver
	Cache          *remote.Cache
	Log            *logrus.Logger
}

// session is the per-request bundle a handler operates against: one
// directory connection, and the authorization resolver and flattening
// engine built over it. Always Close the directory when done.
type session struct {
	dir       directory.Adapter
	resolver  *authz.Resolver
	flattener *flatten.Engine
	principal principal.Principal
}

func (d *Deps) newSession(ctx context.Context, r *http.Request) (*session, error) {
	p, err := d.Auth.Authenticate(r)
	if err != nil {
		return nil, err
	}
	dir, err := d.OpenDirectory(ctx)
	if err != nil {
		return nil, err
	}
	return &session{
		dir: dir,
		resolver: &authz.Resolver{
			Dir:                 dir,
			Paths:               d.Paths,
			GroupsDN:            d.GroupsDN,
			FlattenedMemberAttr: d.FlattenedAttrs[sgrights.MrightMember],
		},
		flattener: &flatten.Engine{
			Dir:            dir,
			GroupsDN:       d.GroupsDN,
			FlattenedAttrs: d.FlattenedAttrs,
			ResolveRemote:  d.RemoteResolver.Resolve,
		},
		principal: p,
	}, nil
}

func (s *session) close() { _ = s.dir.Close() }

// NewRouter builds the full HTTP surface of spec.md §6 wired against
// deps, wrapped in the recovery/logging/CORS middleware chain keto's
// own server driver assembles with negroni and rs/cors.
func NewRouter(d *Deps) http.Handler {
	r := httprouter.New()

	r.GET("/login", d.handleLogin)
	r.GET("/clear_cache", d.handleClearCache)

	r.POST("/create", d.handleCreate)
	r.POST("/modify_sgroup_attrs", d.handleModifySgroupAttrs)
	r.POST("/delete", d.handleDelete)
	r.POST("/modify_members_or_rights", d.handleModifyMembersOrRights)
	r.POST("/modify_remote_sql_query", d.handleModifyRemoteSQLQuery)
	r.GET("/test_remote_query_sql", d.handleTestRemoteQuerySQL)

	r.GET("/sgroup", d.handleGetSgroup)
	r.GET("/sgroup_direct_rights", d.handleGetSgroupDirectRights)
	r.GET("/group_flattened_mright", d.handleGetGroupFlattenedMright)
	r.GET("/sgroup_logs", d.handleGetSgroupLogs)
	r.GET("/search_sgroups", d.handleSearchSgroups)
	r.GET("/search_subjects", d.handleSearchSubjects)
	r.GET("/mygroups", d.handleMyGroups)

	r.GET("/config/public", d.handleConfigPublic)
	r.GET("/config/ldap", d.handleConfigLDAP)
	r.GET("/config/remotes", d.handleConfigRemotes)

	n := negroni.New(negroni.NewRecovery(), negroniLogger{d.Log})
	n.UseHandler(cors.New(cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	}).Handler(r))
	return n
}

type negroniLogger struct{ log *logrus.Logger }

func (l negroniLogger) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	l.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("http request")
	next(w, r)
}

// logMutation emits the audit-adjacent log line for a successful
// mutation (spec.md §3 supplemented feature).
func (d *Deps) logMutation(r *http.Request, id, action string, diff interface{}) {
	audit.Log(d.Log, audit.Entry{
		CorrelationID: audit.NewCorrelationID(),
		ID:            id,
		Action:        action,
		Msg:           r.URL.Query().Get("msg"),
		Diff:          diff,
	})
}
