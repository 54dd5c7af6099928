// Package telemetry sends a single anonymized startup ping, the way
// ory's own services report that an instance came up without
// collecting anything about what it manages.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"

	analytics "github.com/ory/analytics-go/v4"
	"github.com/sirupsen/logrus"
)

// writeKey is ory's public segment write key for anonymized metrics
// across the ory stack; sgroupald reuses it rather than minting its
// own, since no per-project key exists for this fork.
const writeKey = "8sKkjsxFTJmJXJjLMcmWqTYUaZfXhWl5"

// Reporter emits a best-effort "service started" event. Any failure to
// reach the telemetry endpoint is logged and otherwise ignored; it
// must never block or fail startup.
type Reporter struct {
	client    analytics.Client
	instance  string
	log       *logrus.Entry
	buildInfo map[string]interface{}
}

// New constructs a Reporter. enabled gates whether pings are actually
// sent; when false, Ping is a no-op so operators can disable telemetry
// entirely via configuration.
func New(enabled bool, version string, log *logrus.Entry) *Reporter {
	r := &Reporter{log: log, instance: instanceID()}
	if enabled {
		r.client = analytics.New(writeKey)
	}
	r.buildInfo = map[string]interface{}{
		"version": version,
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	return r
}

// Ping sends a single "Service Started" event tagged with an
// anonymized, stable instance id (a hash of the hostname, never the
// hostname itself) and basic build metadata.
func (r *Reporter) Ping() {
	if r.client == nil {
		return
	}
	err := r.client.Enqueue(analytics.Track{
		UserId:     r.instance,
		Event:      "Service Started",
		Properties: analytics.NewProperties().Set("service", "sgroupald"),
		Context: &analytics.Context{
			Extra: r.buildInfo,
		},
	})
	if err != nil {
		r.log.WithError(err).Debug("anonymized telemetry ping failed, continuing without it")
	}
}

// Close flushes any buffered telemetry events. Safe to call even when
// telemetry is disabled.
func (r *Reporter) Close() {
	if r.client == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		r.log.WithError(err).Debug("telemetry client close failed")
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:])[:16]
}
