package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	UserRepo       UserRepository
	PocketRepo     PocketRepository
	MembershipRepo MembershipRepository
}

func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepo:       NewUserRepository(pool),
		PocketRepo:     NewPocketRepository(pool),
		MembershipRepo: NewMembershipRepository(pool),
	}
}
