package shared

// Resources protected by the access policy layer.
const (
	ResourceRoleAssignments = "role_assignments"
	ResourceAccessCodes     = "access_codes"
	ResourceEvents          = "events"
	ResourceGuests          = "guests"
	ResourceCheckins        = "checkins"
	ResourceLogs            = "logs"
	ResourceProfiles        = "profiles"
)

// Actions evaluated against a resource.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)
