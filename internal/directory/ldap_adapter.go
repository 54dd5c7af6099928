package directory

import (
	"context"

	"github.com/cenkalti/backoff/v3"
	ldap "github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"

	"github.com/sgroupald/sgroupald/internal/sgerror"
)

// Config describes how to reach and bind to the directory.
type Config struct {
	URL          string
	BindDN       string
	BindPassword string
}

// ldapAdapter is the production Adapter, backed by a real LDAP
// connection. One connection is bound per request session (spec
// section 4.3: "all operations are serial within one session").
type ldapAdapter struct {
	conn *ldap.Conn
	log  *logrus.Entry
}

var _ Adapter = (*ldapAdapter)(nil)

// Open dials and binds a new session against the directory, retrying
// the connect+bind step with backoff should the initial dial fail.
func Open(cfg Config, log *logrus.Entry) (Adapter, error) {
	var conn *ldap.Conn

	attempt := func() error {
		c, err := ldap.DialURL(cfg.URL)
		if err != nil {
			return err
		}
		if err := c.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			c.Close()
			return err
		}
		conn = c
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(attempt, bo); err != nil {
		return nil, sgerror.Wrap(sgerror.Store, err, "opening directory session")
	}
	return &ldapAdapter{conn: conn, log: log}, nil
}

func (a *ldapAdapter) Read(_ context.Context, dn string, attrs []string) (*Entry, error) {
	req := ldap.NewSearchRequest(dn, ldap.ScopeBaseObject, ldap.NeverDerefAliases,
		0, 0, false, FilterTrue(), attrs, nil)
	res, err := a.conn.Search(req)
	if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		return nil, nil
	}
	if err != nil {
		return nil, sgerror.Wrap(sgerror.Store, err, "read "+dn)
	}
	if len(res.Entries) == 0 {
		return nil, nil
	}
	return toEntry(res.Entries[0]), nil
}

func (a *ldapAdapter) ReadMulti(ctx context.Context, dn, attr string) ([]string, bool, error) {
	e, err := a.Read(ctx, dn, []string{attr})
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return nil, false, nil
	}
	return e.Attrs[attr], true, nil
}

func (a *ldapAdapter) Search(_ context.Context, base, filter string, attrs []string, sizeLimit int) ([]*Entry, error) {
	req := ldap.NewSearchRequest(base, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		sizeLimit, 0, false, filter, attrs, nil)
	res, err := a.conn.Search(req)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, sgerror.Wrap(sgerror.Store, err, "search "+base)
	}
	if res == nil {
		return nil, nil
	}
	entries := make([]*Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		entries = append(entries, toEntry(e))
	}
	return entries, nil
}

func (a *ldapAdapter) Modify(_ context.Context, dn string, ops []Mod) error {
	if len(ops) == 0 {
		return nil
	}
	req := ldap.NewModifyRequest(dn, nil)
	for _, op := range ops {
		switch op.Op {
		case OpAdd:
			req.Add(op.Attr, op.Values)
		case OpDelete:
			req.Delete(op.Attr, op.Values)
		case OpReplace:
			req.Replace(op.Attr, op.Values)
		}
	}
	if err := a.conn.Modify(req); err != nil {
		return sgerror.Wrap(sgerror.Store, err, "modify "+dn)
	}
	return nil
}

func (a *ldapAdapter) Add(_ context.Context, dn string, attrs map[string][]string) error {
	req := ldap.NewAddRequest(dn, nil)
	for attr, vals := range attrs {
		req.Attribute(attr, vals)
	}
	if err := a.conn.Add(req); err != nil {
		return sgerror.Wrap(sgerror.Store, err, "add "+dn)
	}
	return nil
}

func (a *ldapAdapter) Delete(_ context.Context, dn string) error {
	req := ldap.NewDelRequest(dn, nil)
	if err := a.conn.Del(req); err != nil {
		return sgerror.Wrap(sgerror.Store, err, "delete "+dn)
	}
	return nil
}

func (a *ldapAdapter) Close() error {
	return a.conn.Close()
}

func toEntry(e *ldap.Entry) *Entry {
	attrs := make(map[string][]string, len(e.Attributes))
	for _, a := range e.Attributes {
		attrs[a.Name] = a.Values
	}
	return &Entry{DN: e.DN, Attrs: attrs}
}
