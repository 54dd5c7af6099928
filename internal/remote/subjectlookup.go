package remote

import (
	"context"

	"github.com/sgroupald/sgroupald/internal/directory"
)

// SubjectSourceConfig is the minimal shape DirectorySubjectLookup needs
// from ldap.subject_sources: the subtree to search and the attribute a
// remote query's scalar values are matched against.
type SubjectSourceConfig struct {
	DN        string
	MatchAttr string
}

// DirectorySubjectLookup builds the default SubjectLookup: for every
// scalar value a remote query returned, search each configured subject
// source for an entry whose MatchAttr equals that value, per spec.md
// §4.7 ("looking up returned scalar values against configured subject
// sources").
func DirectorySubjectLookup(dir directory.Adapter, sources []SubjectSourceConfig) SubjectLookup {
	return func(ctx context.Context, values []string) ([]string, error) {
		var dns []string
		for _, v := range values {
			for _, src := range sources {
				entries, err := dir.Search(ctx, src.DN, directory.FilterEq(src.MatchAttr, v), nil, 1)
				if err != nil {
					return nil, err
				}
				for _, e := range entries {
					dns = append(dns, e.DN)
				}
			}
		}
		return dns, nil
	}
}
