package domain

import "context"

// Entity names a Gateway resource collection by its API path, e.g. "alunos".
type Entity string

// Entities exposed by the API.
const (
	EntityStudents         Entity = "alunos"
	EntityTeachers         Entity = "professores"
	EntityFinancialEntries Entity = "lancamentos"
	EntityTuition          Entity = "mensalidades"
	EntityDiary            Entity = "diario"
	EntityNotifications    Entity = "notificacoes"
	EntityGuardianChildren Entity = "responsaveis/me/alunos"
)

// Gateway performs CRUD against the remote API. Errors are *AppError values
// categorised by code (Unavailable for network failures, Validation,
// NotFound, Conflict, Unauthorized, Internal).
type Gateway interface {
	List(ctx context.Context, entity Entity) ([]Record, error)
	Get(ctx context.Context, entity Entity, id string) (Record, error)
	Create(ctx context.Context, entity Entity, draft Record) (Record, error)
	Update(ctx context.Context, entity Entity, id string, draft Record) (Record, error)
	Delete(ctx context.Context, entity Entity, id string) error
}

// Authenticator exchanges credentials for a token and profile.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}
