package sgroupapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/sgroupald/sgroupald/internal/authz"
	"github.com/sgroupald/sgroupald/internal/directory"
	"github.com/sgroupald/sgroupald/internal/flatten"
	"github.com/sgroupald/sgroupald/internal/mutation"
	"github.com/sgroupald/sgroupald/internal/sgerror"
	"github.com/sgroupald/sgroupald/internal/sgrights"
)

// --- /login -----------------------------------------------------------

func (d *Deps) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	target := r.URL.Query().Get("target")
	ticket := r.URL.Query().Get("ticket")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		http.Error(w, "invalid target: must be a path-absolute url", http.StatusBadRequest)
		return
	}
	service := serviceURLFromRequest(r)
	user, err := d.CAS.ValidateTicket(r.Context(), service, ticket)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if err := d.Auth.SetUserCookie(w, user); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// serviceURLFromRequest rebuilds the service URL CAS validates the
// ticket against: the request URL with the ticket parameter removed,
// per original_source/src/api_routes.rs's login handler.
func serviceURLFromRequest(r *http.Request) string {
	u := *r.URL
	q := u.Query()
	q.Del("ticket")
	u.RawQuery = q.Encode()
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + u.String()
}

func (d *Deps) handleClearCache(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	d.Cache.Clear()
	writeOK(w)
}

// --- mutations ----------------------------------------------------------

func (d *Deps) handleCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	var attrs MonoAttrs
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "decoding attrs"))
		return
	}

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	if err := d.Paths.Validate(id); err != nil {
		writeError(w, err)
		return
	}
	if err := sess.resolver.HasRightOnAnyParent(r.Context(), sess.principal, id, sgrights.Admin); err != nil {
		writeError(w, toAuthzError(err, id, sgrights.Admin))
		return
	}

	existing, err := sess.dir.Read(r.Context(), sess.resolver.DN(id), nil)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "reading existing sgroup"))
		return
	}
	if existing != nil {
		writeError(w, sgerror.Newf(sgerror.InvalidMods, "sgroup %q already exists", id))
		return
	}

	storeAttrs := map[string][]string{}
	for k, v := range attrs {
		storeAttrs[k] = []string{v}
	}
	// the naming attribute of cn=<id>,<groups_dn>; /delete's children
	// search matches on it.
	storeAttrs["cn"] = []string{id}
	for _, mright := range sgrights.AllMrights() {
		if attr, ok := d.FlattenedAttrs[mright]; ok && mright == sgrights.MrightMember {
			storeAttrs[attr] = []string{""}
		}
	}
	if err := sess.dir.Add(r.Context(), sess.resolver.DN(id), storeAttrs); err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "creating sgroup"))
		return
	}
	d.logMutation(r, id, "create", attrs)
	writeOK(w)
}

func (d *Deps) handleModifySgroupAttrs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	var attrs MonoAttrs
	if err := json.NewDecoder(r.Body).Decode(&attrs); err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "decoding attrs"))
		return
	}

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	if err := sess.resolver.HasRightOnSelfOrAnyParent(r.Context(), sess.principal, id, sgrights.Admin); err != nil {
		writeError(w, toAuthzError(err, id, sgrights.Admin))
		return
	}

	attrNames := make([]string, 0, len(attrs))
	for k := range attrs {
		attrNames = append(attrNames, k)
	}
	current, err := sess.dir.Read(r.Context(), sess.resolver.DN(id), attrNames)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "reading current attrs"))
		return
	}

	// remove_non_modified_attrs (original_source/src/api_post.rs):
	// only write attributes whose new value actually differs, to
	// avoid no-op modify calls.
	var ops []directory.Mod
	for k, v := range attrs {
		if current != nil {
			existing := current.Values(k)
			if len(existing) == 1 && existing[0] == v {
				continue
			}
		}
		ops = append(ops, directory.Mod{Op: directory.OpReplace, Attr: k, Values: []string{v}})
	}
	if len(ops) == 0 {
		writeOK(w)
		return
	}
	if err := sess.dir.Modify(r.Context(), sess.resolver.DN(id), ops); err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "modifying sgroup attrs"))
		return
	}
	d.logMutation(r, id, "modify_sgroup_attrs", attrs)
	writeOK(w)
}

func (d *Deps) handleDelete(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	if err := sess.resolver.HasRightOnSelfOrAnyParent(r.Context(), sess.principal, id, sgrights.Admin); err != nil {
		writeError(w, toAuthzError(err, id, sgrights.Admin))
		return
	}

	children, err := sess.dir.Search(r.Context(), d.GroupsDN, directory.FilterSgroupChildren(id), nil, 1)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "checking for children"))
		return
	}
	if len(children) > 0 {
		writeError(w, sgerror.Newf(sgerror.ChildrenExist, "sgroup %q has children", id))
		return
	}

	if err := sess.dir.Delete(r.Context(), sess.resolver.DN(id)); err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "deleting sgroup"))
		return
	}
	d.logMutation(r, id, "delete", nil)
	writeOK(w)
}

func (d *Deps) handleModifyMembersOrRights(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	var dto ModsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "decoding mods"))
		return
	}
	mods, err := dto.ToMods()
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "invalid mods"))
		return
	}

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	required := mods.RequiredRight()
	if err := sess.resolver.HasRightOnSelfOrAnyParent(r.Context(), sess.principal, id, required); err != nil {
		writeError(w, toAuthzError(err, id, required))
		return
	}

	isStem, err := d.isStem(r.Context(), sess.dir, id)
	if err != nil {
		writeError(w, err)
		return
	}

	currentReader := &storeCurrentDirectReader{ctx: r.Context(), dir: sess.dir, dn: sess.resolver.DN(id)}
	simplified, err := mutation.Validate(isStem, currentReader, mods)
	if err != nil {
		writeError(w, err)
		return
	}

	ttlMaxDays, hasTTL := d.memberTTLMax(r.Context(), sess.dir, sess.resolver.DN(id))
	if hasTTL {
		if err := mutation.CheckMemberTTL(simplified, ttlMaxDays, time.Now()); err != nil {
			writeError(w, err)
			return
		}
	}

	if simplified.IsEmpty() {
		writeOK(w)
		return
	}

	worklist, err := d.applyDirectMods(r.Context(), sess.dir, id, sess.resolver.DN(id), simplified)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := sess.flattener.UpdateCascade(r.Context(), uniqueWorkItems(worklist)); err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "flattening cascade"))
		return
	}
	d.logMutation(r, id, "modify_members_or_rights", simplified)
	writeOK(w)
}

// applyDirectMods writes each Mright's submodifications to its direct
// attribute and returns the (node, Mright) pairs the flattening
// cascade must recompute.
func (d *Deps) applyDirectMods(ctx context.Context, dir directory.Adapter, id, dn string, mods mutation.Mods) ([]flatten.WorkItem, error) {
	var worklist []flatten.WorkItem
	for mright, submods := range mods {
		var ops []directory.Mod
		for op, urls := range submods {
			values := make([]string, 0, len(urls))
			for url := range urls {
				values = append(values, url)
			}
			if len(values) == 0 {
				continue
			}
			ops = append(ops, directory.Mod{Op: toDirectoryOp(op), Attr: mright.DirectAttr(), Values: values})
		}
		if len(ops) == 0 {
			continue
		}
		if err := dir.Modify(ctx, dn, ops); err != nil {
			return nil, sgerror.Wrap(sgerror.Store, err, "applying direct modification")
		}
		worklist = append(worklist, flatten.WorkItem{ID: id, Mright: mright})
	}
	return worklist, nil
}

func toDirectoryOp(op mutation.Op) directory.ModOp {
	switch op {
	case mutation.OpAdd:
		return directory.OpAdd
	case mutation.OpDelete:
		return directory.OpDelete
	default:
		return directory.OpReplace
	}
}

func (d *Deps) handleModifyRemoteSQLQuery(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	var body RemoteSqlQuery
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "decoding remote query"))
		return
	}

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	if err := sess.resolver.HasRightOnSelfOrAnyParent(r.Context(), sess.principal, id, sgrights.Admin); err != nil {
		writeError(w, toAuthzError(err, id, sgrights.Admin))
		return
	}

	if err := sess.dir.Modify(r.Context(), sess.resolver.DN(id), []directory.Mod{{
		Op: directory.OpReplace, Attr: sgrights.MrightMember.DirectAttr(), Values: []string{"sql://" + id + "/?select=" + body.Select},
	}}); err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "setting remote query"))
		return
	}
	d.RemoteResolver.Invalidate(id)
	if err := sess.flattener.UpdateCascade(r.Context(), []flatten.WorkItem{{ID: id, Mright: sgrights.MrightMember}}); err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "flattening cascade"))
		return
	}
	d.logMutation(r, id, "modify_remote_sql_query", body)
	writeOK(w)
}

func (d *Deps) handleTestRemoteQuerySQL(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	remoteID := r.URL.Query().Get("id")
	var body RemoteSqlQuery
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "decoding remote query"))
		return
	}
	count, err := d.RemoteResolver.TestQuery(r.Context(), remoteID, body.Select)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int{"count": count})
}

// --- reads ---------------------------------------------------------------

func (d *Deps) handleGetSgroup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	right, err := sess.resolver.BestRightOnSelfOrAnyParent(r.Context(), sess.principal, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if right == nil {
		writeError(w, sgerror.Newf(sgerror.Forbidden, "no right on %q", id))
		return
	}

	entry, err := sess.dir.Read(r.Context(), sess.resolver.DN(id), nil)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "reading sgroup"))
		return
	}
	if entry == nil && !d.Paths.IsRoot(id) {
		writeError(w, sgerror.Newf(sgerror.NotFound, "sgroup %q not found", id))
		return
	}

	out := SgroupAndMoreOut{Attrs: MonoAttrs{}, Right: *right}
	if entry != nil {
		for k, v := range entry.Attrs {
			if len(v) > 0 && !strings.Contains(k, ";x-") {
				out.Attrs[k] = v[0]
			}
		}
	}
	isStem, err := d.isStem(r.Context(), sess.dir, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if isStem {
		out.Kind = "stem"
		out.Children = map[string]MonoAttrs{}
	} else {
		out.Kind = "group"
		members, _, err := sess.dir.ReadMulti(r.Context(), sess.resolver.DN(id), sgrights.MrightMember.DirectAttr())
		if err != nil {
			writeError(w, sgerror.Wrap(sgerror.Store, err, "reading direct members"))
			return
		}
		out.DirectMembers = map[string]MonoAttrs{}
		for _, m := range members {
			out.DirectMembers[m] = MonoAttrs{}
		}
	}

	for _, parentID := range d.Paths.ParentStems(id) {
		parentRight, err := sess.resolver.BestRightOnSelfOrAnyParent(r.Context(), sess.principal, parentID)
		if err != nil {
			writeError(w, err)
			return
		}
		parentAttrs := MonoAttrs{}
		parentEntry, err := sess.dir.Read(r.Context(), sess.resolver.DN(parentID), nil)
		if err != nil {
			writeError(w, sgerror.Wrap(sgerror.Store, err, "reading parent sgroup"))
			return
		}
		if parentEntry != nil {
			for k, v := range parentEntry.Attrs {
				if len(v) > 0 && !strings.Contains(k, ";x-") {
					parentAttrs[k] = v[0]
				}
			}
		}
		out.Parents = append(out.Parents, SgroupOutAndRight{Attrs: parentAttrs, SgroupID: parentID, Right: parentRight})
	}

	writeJSON(w, out)
}

func (d *Deps) handleGetSgroupDirectRights(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	if err := sess.resolver.HasRightOnSelfOrAnyParent(r.Context(), sess.principal, id, sgrights.Reader); err != nil {
		writeError(w, toAuthzError(err, id, sgrights.Reader))
		return
	}

	out := map[string][]string{}
	for _, right := range []sgrights.Right{sgrights.Reader, sgrights.Updater, sgrights.Admin} {
		urls, _, err := sess.dir.ReadMulti(r.Context(), sess.resolver.DN(id), right.ToMright().DirectAttr())
		if err != nil {
			writeError(w, sgerror.Wrap(sgerror.Store, err, "reading direct rights"))
			return
		}
		out[right.String()] = urls
	}
	writeJSON(w, out)
}

func (d *Deps) handleGetGroupFlattenedMright(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	mright, err := sgrights.ParseMright(r.URL.Query().Get("mright"))
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "invalid mright"))
		return
	}
	searchToken := r.URL.Query().Get("search_token")
	sizeLimit, _ := strconv.Atoi(r.URL.Query().Get("sizelimit"))

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	if err := sess.resolver.HasRightOnSelfOrAnyParent(r.Context(), sess.principal, id, sgrights.Reader); err != nil {
		writeError(w, toAuthzError(err, id, sgrights.Reader))
		return
	}

	attr, ok := d.FlattenedAttrs[mright]
	if !ok {
		writeError(w, sgerror.Newf(sgerror.InvalidMods, "mright %q has no flattened attribute", mright))
		return
	}
	values, _, err := sess.dir.ReadMulti(r.Context(), sess.resolver.DN(id), attr)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "reading flattened mright"))
		return
	}
	filtered := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if searchToken != "" && !strings.Contains(strings.ToLower(v), strings.ToLower(searchToken)) {
			continue
		}
		filtered = append(filtered, v)
	}
	count := len(filtered)
	if sizeLimit > 0 && len(filtered) > sizeLimit {
		filtered = filtered[:sizeLimit]
	}
	writeJSON(w, map[string]interface{}{"count": count, "subjects": filtered})
}

func (d *Deps) handleGetSgroupLogs(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	// Audit storage is external per spec.md §1/SPEC_FULL.md §3: this
	// endpoint keeps the route contract stable for the UI without this
	// repo owning log storage.
	writeError(w, sgerror.New(sgerror.NotFound, "no audit log backend configured"))
}

func (d *Deps) handleSearchSgroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	right, err := sgrights.ParseRight(r.URL.Query().Get("right"))
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.InvalidMods, err, "invalid right"))
		return
	}
	searchToken := strings.ToLower(r.URL.Query().Get("search_token"))
	sizeLimit, _ := strconv.Atoi(r.URL.Query().Get("sizelimit"))

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	entries, err := sess.dir.Search(r.Context(), d.GroupsDN, directory.FilterContains("cn", searchToken), nil, sizeLimit)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "searching sgroups"))
		return
	}

	out := map[string]MonoAttrs{}
	for _, e := range entries {
		id := dnToID(e.DN, d.GroupsDN)
		best, err := sess.resolver.BestRightOnSelfOrAnyParent(r.Context(), sess.principal, id)
		if err != nil || best == nil || *best < right {
			continue
		}
		attrs := MonoAttrs{}
		for k, v := range e.Attrs {
			if len(v) > 0 {
				attrs[k] = v[0]
			}
		}
		out[id] = attrs
	}
	writeJSON(w, out)
}

func (d *Deps) handleSearchSubjects(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	searchToken := strings.ToLower(r.URL.Query().Get("search_token"))
	sizeLimit, _ := strconv.Atoi(r.URL.Query().Get("sizelimit"))
	sourceDN := r.URL.Query().Get("source_dn")

	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	sources := d.Config.LDAP().SubjectSources
	out := map[string]map[string]MonoAttrs{}
	for _, src := range sources {
		if sourceDN != "" && src.DN != sourceDN {
			continue
		}
		entries, err := sess.dir.Search(r.Context(), src.DN, directory.FilterContains("cn", searchToken), src.DisplayAttrs, sizeLimit)
		if err != nil {
			writeError(w, sgerror.Wrap(sgerror.Store, err, "searching subjects"))
			return
		}
		subjects := map[string]MonoAttrs{}
		for _, e := range entries {
			attrs := MonoAttrs{}
			for k, v := range e.Attrs {
				if len(v) > 0 {
					attrs[k] = v[0]
				}
			}
			subjects[e.DN] = attrs
		}
		out[src.DN] = subjects
	}
	writeJSON(w, out)
}

func (d *Deps) handleMyGroups(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, err := d.newSession(r.Context(), r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sess.close()

	userURLs, err := sess.resolver.UserURLs(r.Context(), sess.principal)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "computing user urls"))
		return
	}
	if userURLs.IsTrustedAdmin() {
		writeJSON(w, map[string]MonoAttrs{})
		return
	}
	userID, _ := sess.principal.UserID()
	entries, err := sess.dir.Search(r.Context(), d.GroupsDN, directory.FilterEq(d.FlattenedAttrs[sgrights.MrightMember], userID), nil, 0)
	if err != nil {
		writeError(w, sgerror.Wrap(sgerror.Store, err, "searching my groups"))
		return
	}
	out := map[string]MonoAttrs{}
	for _, e := range entries {
		id := dnToID(e.DN, d.GroupsDN)
		attrs := MonoAttrs{}
		for k, v := range e.Attrs {
			if len(v) > 0 {
				attrs[k] = v[0]
			}
		}
		out[id] = attrs
	}
	writeJSON(w, out)
}

// --- config exposure -------------------------------------------------------

func (d *Deps) handleConfigPublic(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, map[string]string{"cas_prefix_url": d.Config.CASPrefixURL()})
}

func (d *Deps) handleConfigLDAP(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	ldap := d.Config.LDAP()
	ldap.BindPassword = "" // to_js_ui() never serializes the bind password
	writeJSON(w, ldap)
}

func (d *Deps) handleConfigRemotes(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	remotes := d.Config.Remotes()
	redacted := make(map[string]remotePublicDTO, len(remotes))
	for id, r := range remotes {
		redacted[id] = remotePublicDTO{Host: r.Host, Port: r.Port, Driver: r.Driver, Periodicity: r.Periodicity}
	}
	writeJSON(w, redacted)
}

type remotePublicDTO struct {
	Host        string `json:"host"`
	Port        int    `json:"port,omitempty"`
	Driver      string `json:"driver"`
	Periodicity string `json:"periodicity"`
}

// --- shared helpers --------------------------------------------------------

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func dnToID(dn, groupsDN string) string {
	trimmed := strings.TrimSuffix(dn, ","+groupsDN)
	return strings.TrimPrefix(trimmed, "cn=")
}

func toAuthzError(err error, id string, right sgrights.Right) error {
	switch err.(type) {
	case *authz.ForbiddenError:
		return sgerror.Wrapf(sgerror.Forbidden, err, "no %s right on %q", right, id)
	case *authz.NotExistError:
		return sgerror.Wrapf(sgerror.NotFound, err, "%q not found", id)
	default:
		if e, ok := err.(*sgerror.Error); ok {
			return e
		}
		return sgerror.Wrap(sgerror.Store, err, "checking authorization")
	}
}

func (d *Deps) isStem(ctx context.Context, dir directory.Adapter, id string) (bool, error) {
	if d.Paths.IsRoot(id) {
		return true, nil
	}
	dn := "cn=" + id + "," + d.GroupsDN
	entry, err := dir.Read(ctx, dn, []string{"objectClass"})
	if err != nil {
		return false, sgerror.Wrap(sgerror.Store, err, "reading sgroup kind")
	}
	if entry == nil {
		return false, sgerror.Newf(sgerror.NotFound, "sgroup %q not found", id)
	}
	classes := entry.Values("objectClass")
	stemClasses := d.Config.LDAP().StemObjectClasses
	for _, c := range classes {
		for _, sc := range stemClasses {
			if c == sc {
				return true, nil
			}
		}
	}
	return false, nil
}

// memberTTLMax reads the optional groupald-options.x-member-ttl-max
// attribute off a node, returning (days, true) if set.
func (d *Deps) memberTTLMax(ctx context.Context, dir directory.Adapter, dn string) (int, bool) {
	values, ok, err := dir.ReadMulti(ctx, dn, "groupald-options;x-member-ttl-max")
	if err != nil || !ok || len(values) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(values[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

// storeCurrentDirectReader adapts a directory.Adapter + dn into
// mutation.CurrentDirectReader, the seam Validate uses to simplify a
// long Replace.
type storeCurrentDirectReader struct {
	ctx context.Context
	dir directory.Adapter
	dn  string
}

func (s *storeCurrentDirectReader) CurrentDirect(mright sgrights.Mright) (mutation.URLSet, bool, error) {
	values, ok, err := s.dir.ReadMulti(s.ctx, s.dn, mright.DirectAttr())
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	set := make(mutation.URLSet, len(values))
	for _, v := range values {
		set[v] = mutation.URLOpts{}
	}
	return set, true, nil
}

func uniqueWorkItems(items []flatten.WorkItem) []flatten.WorkItem {
	seen := make(map[flatten.WorkItem]struct{}, len(items))
	out := make([]flatten.WorkItem, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
