package config

import (
	"github.com/adhocore/gronx"
	"github.com/pkg/errors"
)

// ValidatePeriodicity checks a remote's periodicity string. The
// original configuration format is a systemd calendar-event expression
// (systemd.time(7)); no Go library in the example pack or the wider
// ecosystem parses that grammar, so periodicity here is validated as a
// cron expression instead (github.com/adhocore/gronx, sourced from the
// wtsi-ssg-wrstat example), the closest available stand-in. See
// DESIGN.md.
func ValidatePeriodicity(expr string) error {
	if !gronx.IsValid(expr) {
		return errors.Errorf("invalid periodicity %q", expr)
	}
	return nil
}
