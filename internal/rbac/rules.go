package rbac

const (
	PermTestView       = "test:view"
	PermTestCreate     = "test:create"
	PermTestEditOwn    = "test:edit_own"
	PermQuestionManage = "question:manage_own"
	PermResultSubmit   = "result:submit"
	PermResultViewOwn  = "result:view_own"
	PermResultViewTest = "result:view_test"
	PermStatsView      = "result:stats"
	PermChangePassword = "user:change_password"
)

// RolePermissions is the default policy. Ownership of a specific test is
// checked by the services, not here.
var RolePermissions = map[string][]string{
	"student": {
		PermTestView,
		PermResultSubmit,
		PermResultViewOwn,
		PermChangePassword,
	},
	"teacher": {
		PermTestView,
		PermTestCreate,
		PermTestEditOwn,
		PermQuestionManage,
		"result:*",
		PermChangePassword,
	},
}
