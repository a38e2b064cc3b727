package rbac

// Role names. Keep these stable; they are issued inside access tokens.
const (
	RoleAdmin        = "admin"
	RoleCoordinator  = "coordinator"
	RoleLawyer       = "lawyer"
	RoleSocialWorker = "social_worker"
	RoleStudent      = "student"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

func Known(role string) bool {
	switch role {
	case RoleAdmin, RoleCoordinator, RoleLawyer, RoleSocialWorker, RoleStudent:
		return true
	default:
		return false
	}
}

// Role groups used by the route table.
var (
	Intake     = []string{RoleCoordinator, RoleLawyer, RoleStudent}
	SocialWork = []string{RoleCoordinator, RoleSocialWorker}
	Reports    = []string{RoleCoordinator}
	Staff      = []string{RoleCoordinator, RoleLawyer, RoleSocialWorker, RoleStudent}
)
