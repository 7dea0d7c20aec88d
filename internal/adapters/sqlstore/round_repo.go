package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// RoundRepository implements secondary.RoundRepository.
type RoundRepository struct {
	db *sql.DB
}

// NewRoundRepository creates a round repository over db.
func NewRoundRepository(db *sql.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

func scanRound(row rowScanner) (*secondary.RoundRecord, error) {
	var status, uri sql.NullString
	record := &secondary.RoundRecord{}
	if err := row.Scan(&record.ID, &record.Name, &status, &uri); err != nil {
		return nil, err
	}
	record.Status = status.String
	record.RoundURI = uri.String
	return record, nil
}

// GetByName retrieves a round by its exact name.
func (r *RoundRepository) GetByName(ctx context.Context, name string) (*secondary.RoundRecord, error) {
	record, err := scanRound(r.db.QueryRowContext(ctx,
		"SELECT id, name, status, round_uri FROM round_view WHERE name = ?", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get round", "round %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return record, nil
}

// List retrieves every round except the mistakes bucket, in creation order.
func (r *RoundRepository) List(ctx context.Context) ([]*secondary.RoundRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, status, round_uri FROM round_view WHERE name <> ? ORDER BY id", mistakesRound)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*secondary.RoundRecord
	for rows.Next() {
		record, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}

// Create adds a round. Creating a round that already exists is an error.
func (r *RoundRepository) Create(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, "INSERT INTO round (name) VALUES (?)", name); err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	return nil
}

// UpdateField sets one whitelisted column of a round.
func (r *RoundRepository) UpdateField(ctx context.Context, id, field, value string) error {
	if !secondary.RoundFields[field] {
		return apperr.New(apperr.KindInvalidInput, "update round", "unknown round field %q", field)
	}
	res, err := r.db.ExecContext(ctx, "UPDATE round SET "+field+" = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to update round %s: %w", field, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("update round", "round %s not found", id)
	}
	return nil
}
