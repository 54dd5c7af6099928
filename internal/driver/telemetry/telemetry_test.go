package telemetry_test

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/sgroupald/sgroupald/internal/driver/telemetry"
)

func TestPingDisabledIsNoop(t *testing.T) {
	r := telemetry.New(false, "test", logrus.NewEntry(logrus.New()))
	r.Ping()
	r.Close()
}

func TestPingEnabledDoesNotPanic(t *testing.T) {
	r := telemetry.New(true, "test", logrus.NewEntry(logrus.New()))
	r.Ping()
	r.Close()
}
