package postgres

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/milhasrod/gateway/internal/attempt"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var attemptColumns = []string{
	"attempt_id",
	"ref",
	"user_id",
	"origin",
	"destination",
	"start_date",
	"status",
	"refund_uncertain",
	"cause",
	"created_at",
	"updated_at",
}

// AttemptRepository implements the attempt.Repository interface using PostgreSQL
type AttemptRepository struct {
	db *pgxpool.Pool
}

var _ attempt.Repository = (*AttemptRepository)(nil)

// Save inserts the attempt or updates the state of the attempt carrying the same reference
func (repo *AttemptRepository) Save(ctx context.Context, obj *attempt.Attempt) error {
	if obj.ID == uuid.Nil {
		obj.ID = uuid.New()
	}

	sql, vals, err := psql.Insert("search_attempts").
		Columns(attemptColumns...).
		Values(
			obj.ID,
			obj.Ref,
			obj.UserID,
			obj.Origin,
			obj.Destination,
			obj.StartDate,
			string(obj.Status),
			obj.RefundUncertain,
			obj.Cause,
			obj.CreatedAt,
			obj.UpdatedAt,
		).
		Suffix("ON CONFLICT (ref) DO UPDATE SET status = EXCLUDED.status, refund_uncertain = EXCLUDED.refund_uncertain, cause = EXCLUDED.cause, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	_, err = repo.db.Exec(ctx, sql, vals...)
	return err
}

// GetByRef retrieves an attempt by its spend reference
func (repo *AttemptRepository) GetByRef(ctx context.Context, ref string) (*attempt.Attempt, error) {
	sql, vals, err := psql.Select(attemptColumns...).From("search_attempts").Where(squirrel.Eq{"ref": ref}).ToSql()
	if err != nil {
		return nil, err
	}

	obj, err := repo.rowToAttempt(repo.db.QueryRow(ctx, sql, vals...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// GetByUserID retrieves the attempts of a user, most recent first
func (repo *AttemptRepository) GetByUserID(ctx context.Context, userID string, offset, limit uint64) ([]*attempt.Attempt, uint64, error) {
	var n uint64
	if err := repo.db.QueryRow(ctx, "SELECT COUNT(*) FROM search_attempts WHERE user_id = $1", userID).Scan(&n); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []*attempt.Attempt{}, 0, nil
	}

	query := psql.Select(attemptColumns...).
		From("search_attempts").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	} else {
		query = query.Limit(10)
	}
	sql, vals, err := query.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := repo.db.Query(ctx, sql, vals...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attempts := []*attempt.Attempt{}
	for rows.Next() {
		obj, err := repo.rowToAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return attempts, n, nil
}

// CountUncertain counts the attempts of a user whose refund state is uncertain
func (repo *AttemptRepository) CountUncertain(ctx context.Context, userID string) (uint64, error) {
	var n uint64
	err := repo.db.QueryRow(ctx, "SELECT COUNT(*) FROM search_attempts WHERE user_id = $1 AND refund_uncertain", userID).Scan(&n)
	return n, err
}

func (repo *AttemptRepository) rowToAttempt(row pgx.Row) (*attempt.Attempt, error) {
	obj := new(attempt.Attempt)
	var status string
	if err := row.Scan(
		&obj.ID,
		&obj.Ref,
		&obj.UserID,
		&obj.Origin,
		&obj.Destination,
		&obj.StartDate,
		&status,
		&obj.RefundUncertain,
		&obj.Cause,
		&obj.CreatedAt,
		&obj.UpdatedAt,
	); err != nil {
		return nil, err
	}
	obj.Status = attempt.Status(status)
	return obj, nil
}
