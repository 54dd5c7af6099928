package remote

import (
	"net/url"
	"strings"

	"github.com/sgroupald/sgroupald/internal/sgerror"
)

// Query is a parsed sql://<remote-id>/?select=... pseudo-URL: a
// configured remote plus the SQL fragment to run against it.
type Query struct {
	RemoteID string
	Select   string
}

// IsRemoteQueryURL reports whether raw is a sql:// remote-query
// pseudo-URL rather than a resolvable subject DN.
func IsRemoteQueryURL(raw string) bool {
	return strings.HasPrefix(raw, "sql://")
}

// ParseQuery parses a sql://<remote-id>/?select=... URL.
func ParseQuery(raw string) (Query, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Query{}, sgerror.Wrapf(sgerror.InvalidMods, err, "invalid remote query url %q", raw)
	}
	if u.Scheme != "sql" {
		return Query{}, sgerror.Newf(sgerror.InvalidMods, "not a sql:// remote query url: %q", raw)
	}
	sel := u.Query().Get("select")
	if sel == "" {
		return Query{}, sgerror.Newf(sgerror.InvalidMods, "remote query url %q is missing ?select=", raw)
	}
	return Query{RemoteID: u.Host, Select: sel}, nil
}
