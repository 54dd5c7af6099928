package sgroupapi

import (
	"encoding/json"
	"net/http"

	"github.com/ory/herodot"

	"github.com/sgroupald/sgroupald/internal/sgerror"
)

// toHerodot maps the eight sgerror.Kind values onto herodot's HTTP
// status vocabulary, per spec.md §7's 4xx/5xx policy: authorization
// and validation failures are client errors, store/remote failures are
// server errors.
func toHerodot(err error) *herodot.DefaultError {
	e, ok := sgerror.As(err)
	if !ok {
		return herodot.ErrInternalServerError.WithError(err.Error()).WithReason("unexpected error")
	}
	switch e.Kind {
	case sgerror.InvalidID, sgerror.InvalidMods:
		return herodot.ErrBadRequest.WithError(e.Msg).WithReason(e.Kind.String())
	case sgerror.NotFound:
		return herodot.ErrNotFound.WithError(e.Msg).WithReason(e.Kind.String())
	case sgerror.Forbidden:
		return herodot.ErrForbidden.WithError(e.Msg).WithReason(e.Kind.String())
	case sgerror.ChildrenExist:
		return herodot.ErrConflict.WithError(e.Msg).WithReason(e.Kind.String())
	case sgerror.Remote, sgerror.Store:
		return herodot.ErrInternalServerError.WithError(e.Error()).WithReason(e.Kind.String())
	default:
		return herodot.ErrInternalServerError.WithError(e.Error()).WithReason(e.Kind.String())
	}
}

// writeError writes {"error":true,"msg":...} at the mapped status
// code, the shape spec.md §6 documents for mutation failures.
func writeError(w http.ResponseWriter, err error) {
	he := toHerodot(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.StatusCode())
	_, _ = w.Write([]byte(`{"error":true,"msg":` + jsonString(he.Reason()+": "+he.Error()) + `}`))
}

// writeOK writes the {"ok":true} body mutations return on success.
func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
