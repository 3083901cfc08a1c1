package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/cardrelay/cardrelay/internal/repository"
)

type Repositories struct {
	Redemptions repo.Redemptions
	AuditLogs   repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Redemptions: &redemptionsRepo{pool},
		AuditLogs:   &auditLogsRepo{pool},
	}
}
