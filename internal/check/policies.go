package check

import "dbcheck/internal/probe"

// Policy names double as metric labels and result log keys.
const (
	PrimaryCheck = "db-check"
	MSSQLCheck   = "mssql-check"
	CustomCheck  = "mssql-custom-check"
	VersionCheck = "mssql-mcp-check"
)

// Policies are the checks the service exposes.
type Policies struct {
	Primary Policy
	MSSQL   Policy
	Custom  Policy
	Version Policy
}

// StandardPolicies builds the service's checks. mssqlEnabled=false puts the
// environment profile checks in mock mode; caller supplied credentials are
// always probed for real.
func StandardPolicies(mssqlEnabled bool, mssqlAdapters []probe.Adapter, primary probe.Adapter) Policies {
	var primaryAdapters []probe.Adapter
	if primary != nil {
		primaryAdapters = []probe.Adapter{primary}
	}
	return Policies{
		Primary: Policy{
			Name:       PrimaryCheck,
			Label:      "primary database",
			ProbeQuery: "SELECT 1",
			Adapters:   primaryAdapters,
		},
		MSSQL: Policy{
			Name:        MSSQLCheck,
			Label:       "MSSQL",
			MockEnabled: !mssqlEnabled,
			ProbeQuery:  "SELECT 1",
			Adapters:    mssqlAdapters,
		},
		Custom: Policy{
			Name:       CustomCheck,
			Label:      "MSSQL",
			ProbeQuery: "SELECT 1",
			Adapters:   mssqlAdapters,
		},
		Version: Policy{
			Name:        VersionCheck,
			Label:       "MSSQL",
			MockEnabled: !mssqlEnabled,
			ProbeQuery:  "SELECT @@VERSION",
			ShowDetail:  true,
			Adapters:    mssqlAdapters,
		},
	}
}
