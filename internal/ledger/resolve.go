package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/crucial707/asset-custody/internal/rut"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// holder is a resolved collaborator. Rows are read FOR SHARE so a concurrent
// deactivation waits for the movement to commit.
type holder struct {
	ID        int
	Name      string
	ProjectID sql.NullInt64
	Active    bool
}

type lookup int

const (
	lookupFound lookup = iota
	lookupNotFound
	lookupAmbiguous
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// resolveCollaborator resolves an explicit id, or else a free-text token by
// exact RUT, exact name and finally a case-insensitive name fragment. Each
// step must match exactly one row; two matches fail as ambiguous.
// It returns nil without error when neither was supplied.
func resolveCollaborator(ctx context.Context, q querier, id int, ref string) (*holder, error) {
	ref = strings.TrimSpace(ref)
	if id > 0 {
		h, outcome, err := lookupOne(ctx, q,
			`SELECT id, name, project_id, active FROM collaborators WHERE id = $1 FOR SHARE`, id)
		if err != nil {
			return nil, err
		}
		if outcome != lookupFound {
			return nil, &CollaboratorNotFoundError{Ref: strconv.Itoa(id)}
		}
		return h, nil
	}
	if ref == "" {
		return nil, nil
	}

	rutArg := ref
	if rut.Valid(ref) {
		rutArg = rut.Format(ref)
	}
	steps := []struct {
		query string
		arg   string
	}{
		{`SELECT id, name, project_id, active FROM collaborators WHERE rut = $1 ORDER BY id LIMIT 2 FOR SHARE`, rutArg},
		{`SELECT id, name, project_id, active FROM collaborators WHERE name = $1 ORDER BY id LIMIT 2 FOR SHARE`, ref},
		{`SELECT id, name, project_id, active FROM collaborators WHERE name ILIKE $1 ORDER BY id LIMIT 2 FOR SHARE`,
			"%" + likeEscaper.Replace(ref) + "%"},
	}
	for _, s := range steps {
		h, outcome, err := lookupOne(ctx, q, s.query, s.arg)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case lookupFound:
			return h, nil
		case lookupAmbiguous:
			return nil, &CollaboratorNotFoundError{Ref: ref, Ambiguous: true}
		}
	}
	return nil, &CollaboratorNotFoundError{Ref: ref}
}

func lookupOne(ctx context.Context, q querier, query string, arg any) (*holder, lookup, error) {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, lookupNotFound, storageErr("resolve collaborator", err)
	}
	defer rows.Close()

	var found []holder
	for rows.Next() {
		var h holder
		if err := rows.Scan(&h.ID, &h.Name, &h.ProjectID, &h.Active); err != nil {
			return nil, lookupNotFound, storageErr("resolve collaborator", err)
		}
		found = append(found, h)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, lookupNotFound, storageErr("resolve collaborator", err)
	}

	switch len(found) {
	case 0:
		return nil, lookupNotFound, nil
	case 1:
		return &found[0], lookupFound, nil
	default:
		return nil, lookupAmbiguous, nil
	}
}
