package user

// User represents a portal user as delivered by the municipal backend on login
type User struct {
	ID       string      `json:"id"`
	Name     string      `json:"nome"`
	Email    string      `json:"email"`
	CPF      string      `json:"cpf"`
	CNPJ     string      `json:"cnpj"`
	Username string      `json:"username"`
	Active   bool        `json:"ativo"`
	Flags    AccessFlags `json:"flags"`
}

// AccessFlags represents the flat access level booleans the backend attaches to a user.
// The flags are not mutually exclusive; use Role to resolve the effective role.
type AccessFlags struct {
	Municipe      bool `json:"municipe"`
	Operador      bool `json:"operador"`
	Secretario    bool `json:"secretario"`
	Administrador bool `json:"administrador"`
}

// Role represents the effective role of a user, resolved once from its access flags
type Role string

const (
	RoleMunicipe      Role = "municipe"
	RoleOperador      Role = "operador"
	RoleSecretario    Role = "secretario"
	RoleAdministrador Role = "administrador"
)

// Role resolves the effective role out of the access flags.
// Priority: administrador > secretario > operador > municipe.
// A user carrying no flag at all is treated as a plain munícipe.
func (flags AccessFlags) Role() Role {
	switch {
	case flags.Administrador:
		return RoleAdministrador
	case flags.Secretario:
		return RoleSecretario
	case flags.Operador:
		return RoleOperador
	default:
		return RoleMunicipe
	}
}

// AtLeast checks whether the role grants the privileges of the required role
func (role Role) AtLeast(required Role) bool {
	return role.rank() >= required.rank()
}

func (role Role) rank() int {
	switch role {
	case RoleAdministrador:
		return 3
	case RoleSecretario:
		return 2
	case RoleOperador:
		return 1
	default:
		return 0
	}
}
