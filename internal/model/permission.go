package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionTestsRead allows viewing drafts and the full test catalogue.
	PermissionTestsRead Permission = "tests:read"

	// PermissionTestsWrite allows creating, editing and deleting draft tests.
	PermissionTestsWrite Permission = "tests:write"

	// PermissionTestsPublish allows publishing tests and refreshing their cache.
	PermissionTestsPublish Permission = "tests:publish"

	// PermissionResultsExport allows downloading result spreadsheets.
	PermissionResultsExport Permission = "results:export"

	// PermissionMediaUpload allows uploading section images and audio.
	PermissionMediaUpload Permission = "media:upload"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionTestsRead,
	PermissionTestsWrite,
	PermissionTestsPublish,
	PermissionResultsExport,
	PermissionMediaUpload,
}

// Role names carried in access tokens.
const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)
