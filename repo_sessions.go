package users

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions persists server-side session handles.
type Sessions interface {
	SessionStore
}

type sessionsRepo struct {
	db *bun.DB
}

var _ Sessions = (*sessionsRepo)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessionsRepo{db: db}
}

func (r *sessionsRepo) CreateSession(ctx context.Context, session *Session) (*Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	if _, err := r.db.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session")
	}

	return session, nil
}

func (r *sessionsRepo) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	record := &Session{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// DeleteSession removes the handle. A delete that matches no row reports
// record-not-found so logout can refuse to pretend it succeeded.
func (r *sessionsRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("?TableAlias.id = ?", id.String()).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}
