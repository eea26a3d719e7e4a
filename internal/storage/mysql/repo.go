package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"academy_site/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) InsertLead(ctx context.Context, l domain.Lead, remoteIP, userAgent string) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertLeadSQL,
		l.FullName,
		l.Email,
		valStr(l.Phone),
		valStr(string(l.Type)),
		valStr(l.Source),
		valStr(l.Interest),
		valStr(l.Message),
		valStr(remoteIP),
		valStr(userAgent),
	)
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repo) MarkDelivered(ctx context.Context, id int64) error {
	return r.exec1(ctx, markDeliveredSQL, id)
}

func (r *Repo) MarkFailed(ctx context.Context, id int64, reason string, permanent bool) error {
	return r.exec1(ctx, markFailedSQL, permanent, reason, id)
}

// exec1 runs an UPDATE whose last argument is the lead id and maps a missing
// row to domain.ErrNotFound.
func (r *Repo) exec1(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) GetLead(ctx context.Context, id int64) (domain.LeadRecord, error) {
	rec, err := scanLead(r.db.QueryRowContext(ctx, getLeadSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LeadRecord{}, domain.ErrNotFound
	}
	return rec, err
}

func (r *Repo) ListPending(ctx context.Context, limit, maxAttempts int) ([]domain.LeadRecord, error) {
	rows, err := r.db.QueryContext(ctx, listPendingSQL, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LeadRecord
	for rows.Next() {
		rec, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanLead(s scanner) (domain.LeadRecord, error) {
	var rec domain.LeadRecord
	var (
		phone, typ, source, interest, message sql.NullString
		remoteIP, userAgent, lastErr          sql.NullString
		status                                string
		deliveredAt                           sql.NullTime
	)
	if err := s.Scan(
		&rec.ID,
		&rec.Lead.FullName,
		&rec.Lead.Email,
		&phone,
		&typ,
		&source,
		&interest,
		&message,
		&remoteIP,
		&userAgent,
		&status,
		&rec.Attempts,
		&lastErr,
		&rec.CreatedAt,
		&deliveredAt,
	); err != nil {
		return domain.LeadRecord{}, err
	}
	rec.Lead.Phone = phone.String
	rec.Lead.Type = domain.LeadType(typ.String)
	rec.Lead.Source = source.String
	rec.Lead.Interest = interest.String
	rec.Lead.Message = message.String
	rec.RemoteIP = remoteIP.String
	rec.UserAgent = userAgent.String
	rec.Status = domain.LeadStatus(status)
	if lastErr.Valid {
		s := lastErr.String
		rec.LastError = &s
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		rec.DeliveredAt = &t
	}
	return rec, nil
}
