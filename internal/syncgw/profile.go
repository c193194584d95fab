package syncgw

import (
	"context"
	"errors"

	"github.com/PeterChen712/EcoSortify-sub002/internal/db"

	"github.com/jackc/pgx/v5"
)

// ErrOwnerNotFound reports a push for an owner with no users row.
var ErrOwnerNotFound = errors.New("owner not found")

// Identity is the display identity of an owner as stored locally.
type Identity struct {
	Username  string
	FullName  string
	AvatarURL string
}

// ProfileSource resolves an owner's display identity for upload.
type ProfileSource interface {
	OwnerIdentity(ctx context.Context, owner string) (Identity, error)
}

// PGProfileSource reads identity from the users table.
type PGProfileSource struct {
	db db.Querier
}

func NewPGProfileSource(q db.Querier) *PGProfileSource {
	return &PGProfileSource{db: q}
}

func (p *PGProfileSource) OwnerIdentity(ctx context.Context, owner string) (Identity, error) {
	row := p.db.QueryRow(ctx, `
		SELECT username, COALESCE(full_name,''), COALESCE(avatar_url,'')
		FROM users WHERE id=$1
	`, owner)

	var id Identity
	err := row.Scan(&id.Username, &id.FullName, &id.AvatarURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, ErrOwnerNotFound
	}
	if err != nil {
		return Identity{}, err
	}
	return id, nil
}
