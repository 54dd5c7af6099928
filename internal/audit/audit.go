// Package audit emits the structured log line every mutating
// operation produces. Persisted audit storage stays an external
// collaborator per spec.md §1; this package only guarantees the
// shipper has a consistent, structured line to collect — the
// ambient-logging carry-over of original_source/src/api_post.rs's
// api_log::log_sgroup_action calls.
package audit

import (
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

// Entry is one mutation's audit-adjacent log record: the four fields
// api_log::log_sgroup_action carries (id, action, msg, diff), plus a
// correlation id so a shipper can join it with other log lines from
// the same request.
type Entry struct {
	CorrelationID string
	ID            string
	Action        string
	Msg           string
	Diff          interface{}
}

// NewCorrelationID mints a fresh correlation id for one mutating
// request.
func NewCorrelationID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// uuid.NewV4 only fails if the system RNG is broken; fall back
		// to the nil UUID rather than blocking a mutation on it.
		return uuid.Nil.String()
	}
	return id.String()
}

// Log writes e at Info level through l.
func Log(l *logrus.Logger, e Entry) {
	fields := logrus.Fields{
		"correlation_id": e.CorrelationID,
		"sgroup_id":      e.ID,
		"action":         e.Action,
	}
	if e.Msg != "" {
		fields["msg"] = e.Msg
	}
	if e.Diff != nil {
		fields["diff"] = e.Diff
	}
	l.WithFields(fields).Info("sgroup action")
}
