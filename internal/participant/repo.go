package participant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"eventdesk/internal/auth"
)

const columns = `id, child_name, parent_name, email, address, school, gender, nametag_no,
	representative_name, representative_phone,
	check_in, check_in_time, snack_box_received, snack_box_time,
	lunch_box_ticket_received, lunch_box_ticket_received_time,
	status, created_at, updated_at, updated_by`

// Repository persists participants in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row scanner) (Participant, error) {
	var p Participant
	err := row.Scan(
		&p.ID, &p.ChildName, &p.ParentName, &p.Email, &p.Address, &p.School, &p.Gender, &p.NametagNo,
		&p.RepresentativeName, &p.RepresentativePhone,
		&p.CheckIn, &p.CheckInTime, &p.SnackBoxReceived, &p.SnackBoxTime,
		&p.LunchTicketReceived, &p.LunchTicketTime,
		&p.Status, &p.CreatedAt, &p.UpdatedAt, &p.UpdatedBy,
	)
	return p, err
}

func (r *Repository) queryAll(ctx context.Context, op, query string, args ...any) ([]Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	res := []Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

// Get returns a single participant by id.
func (r *Repository) Get(ctx context.Context, id string) (Participant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM participants WHERE id = $1`, id)
	p, err := scanParticipant(row)
	if err != nil {
		return Participant{}, classify("get participant", err)
	}
	return p, nil
}

// List returns every participant in the requested order.
func (r *Repository) List(ctx context.Context, order Order) ([]Participant, error) {
	orderBy := "lower(child_name), created_at, id"
	if order == OrderByRecent {
		orderBy = "created_at DESC, id DESC"
	}
	return r.queryAll(ctx, "list participants", `SELECT `+columns+` FROM participants ORDER BY `+orderBy)
}

// Search matches query against child name, parent name and email with ILIKE.
// Postgres compares by lower(), not by full Unicode case folding, so "ß" does
// not match "ss" here while it does in MemoryStore.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]Participant, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + escapeLike(query) + "%"
	return r.queryAll(ctx, "search participants", `
		SELECT `+columns+`
		FROM participants
		WHERE child_name ILIKE $1 ESCAPE '\'
		   OR parent_name ILIKE $1 ESCAPE '\'
		   OR email ILIKE $1 ESCAPE '\'
		ORDER BY lower(child_name), created_at, id
		LIMIT $2
	`, pattern, limit)
}

// Insert writes all participants in one transaction.
func (r *Repository) Insert(ctx context.Context, ps []Participant) (int, error) {
	if len(ps) == 0 {
		return 0, nil
	}
	by := auth.ActorFromContext(ctx).ID
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify("begin insert", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO participants (`+columns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
	`)
	if err != nil {
		return 0, classify("prepare insert", err)
	}
	defer stmt.Close()

	for _, p := range ps {
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.ChildName, p.ParentName, p.Email, p.Address, p.School, p.Gender, p.NametagNo,
			p.RepresentativeName, p.RepresentativePhone,
			p.CheckIn, p.CheckInTime, p.SnackBoxReceived, p.SnackBoxTime,
			p.LunchTicketReceived, p.LunchTicketTime,
			p.Status, p.CreatedAt, p.UpdatedAt, by,
		); err != nil {
			return 0, classify("insert participant "+p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, classify("commit insert", err)
	}
	return len(ps), nil
}

// Update writes the full record. With a non-zero prevUpdatedAt the row is only
// written when its updated_at is unchanged since it was read.
func (r *Repository) Update(ctx context.Context, p Participant, prevUpdatedAt time.Time) (Participant, error) {
	var prev any
	if !prevUpdatedAt.IsZero() {
		prev = prevUpdatedAt
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE participants SET
			child_name = $2, parent_name = $3, email = $4, address = $5, school = $6, gender = $7, nametag_no = $8,
			representative_name = $9, representative_phone = $10,
			check_in = $11, check_in_time = $12, snack_box_received = $13, snack_box_time = $14,
			lunch_box_ticket_received = $15, lunch_box_ticket_received_time = $16,
			status = $17, updated_at = $18, updated_by = $19
		WHERE id = $1 AND ($20::timestamptz IS NULL OR updated_at = $20::timestamptz)
		RETURNING `+columns,
		p.ID, p.ChildName, p.ParentName, p.Email, p.Address, p.School, p.Gender, p.NametagNo,
		p.RepresentativeName, p.RepresentativePhone,
		p.CheckIn, p.CheckInTime, p.SnackBoxReceived, p.SnackBoxTime,
		p.LunchTicketReceived, p.LunchTicketTime,
		p.Status, p.UpdatedAt, auth.ActorFromContext(ctx).ID, prev,
	)
	saved, err := scanParticipant(row)
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Participant{}, classify("update participant", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM participants WHERE id = $1)`, p.ID).Scan(&exists); err != nil {
		return Participant{}, classify("update participant", err)
	}
	if exists {
		return Participant{}, ErrConflict
	}
	return Participant{}, ErrNotFound
}

// Delete removes a participant.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return classify("delete participant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete participant", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify maps driver errors onto the participant error kinds.
func classify(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.Detail)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrIntegrity, pgErr.Message)
		case pgerrcode.QueryCanceled:
			return fmt.Errorf("%s: %w: %w", op, ErrStore, context.Canceled)
		}
	}
	return storeError(op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
