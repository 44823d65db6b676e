package monitor

import (
	"context"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/profile"
)

// ServiceTargets watches the primary store when hasPrimary is set and, when
// enabled, the MSSQL environment profile. A broken MSSQL profile is logged and
// skipped so the primary store keeps being watched.
func ServiceTargets(log Logger, mssql config.MSSQLConfig, primary profile.Profile, policies check.Policies, hasPrimary bool) TargetSource {
	return func(context.Context) ([]Target, error) {
		var targets []Target
		if hasPrimary {
			targets = append(targets, Target{Profile: primary, Policy: policies.Primary})
		}
		if mssql.Enabled {
			p, err := profile.FromEnvironment(mssql)
			if err != nil {
				log.Printf("MSSQL target not monitored: %v", err)
			} else {
				targets = append(targets, Target{Profile: p, Policy: policies.MSSQL})
			}
		}
		return targets, nil
	}
}
