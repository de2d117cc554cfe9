package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/triage-service/internal/domain"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Severities  []domain.TicketSeverity
	Category    *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	MarkResolved(ctx context.Context, id, reasoning, solution string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, category, severity, application, environment, affected_users, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Severity,
		ticket.Application,
		ticket.Environment,
		ticket.AffectedUsers,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTicket(row)
}

func (r *ticketRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE external_key=$1`
	row := r.pool.QueryRow(ctx, query, key)
	return scanTicket(row)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			placeholders = append(placeholders, arg(s))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, 0, len(filter.Severities))
		for _, s := range filter.Severities {
			placeholders = append(placeholders, arg(s))
		}
		conditions = append(conditions, fmt.Sprintf("severity IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category=%s", arg(*filter.Category)))
	}
	if filter.SearchTerm != nil {
		term := "%" + strings.ToLower(*filter.SearchTerm) + "%"
		p := arg(term)
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", p, p))
	}
	if filter.CreatedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= %s", arg(*filter.CreatedFrom)))
	}
	if filter.CreatedTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= %s", arg(*filter.CreatedTo)))
	}

	query := ticketSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", arg(filter.Limit))
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %s", arg(filter.Offset))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

// MarkResolved sets reasoning, solution, and flips status in one statement so
// the OPEN->RESOLVED transition happens at most once per ticket. No row means
// a concurrent resolve already won, which is a conflict rather than a missing
// ticket.
func (r *ticketRepository) MarkResolved(ctx context.Context, id, reasoning, solution string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET reasoning=$1, solution=$2, status=$3, resolved_at=NOW(), updated_at=NOW()
        WHERE id=$4 AND status=$5
        RETURNING id, external_key, title, description, category, severity, application, environment,
                  affected_users, status, reasoning, solution, created_at, updated_at, resolved_at`
	row := r.pool.QueryRow(ctx, query, reasoning, solution, domain.TicketStatusResolved, id, domain.TicketStatusOpen)
	ticket, err := scanTicket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewConflict("ticket already resolved", map[string]any{"ticket_id": id})
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const ticketSelect = `
        SELECT id, external_key, title, description, category, severity, application, environment,
               affected_users, status, reasoning, solution, created_at, updated_at, resolved_at
        FROM tickets`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Severity,
		&ticket.Application,
		&ticket.Environment,
		&ticket.AffectedUsers,
		&ticket.Status,
		&ticket.Reasoning,
		&ticket.Solution,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
