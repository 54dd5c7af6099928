package audit_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/sgroupald/sgroupald/internal/audit"
)

func TestNewCorrelationIDIsUnique(t *testing.T) {
	a := audit.NewCorrelationID()
	b := audit.NewCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestLogWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.Out = &buf
	l.Formatter = &logrus.JSONFormatter{}

	audit.Log(l, audit.Entry{
		CorrelationID: "corr-1",
		ID:            "ou1.group1",
		Action:        "modify_sgroup_member",
		Msg:           "added alice",
	})

	out := buf.String()
	assert.Contains(t, out, "corr-1")
	assert.Contains(t, out, "ou1.group1")
	assert.Contains(t, out, "modify_sgroup_member")
}
