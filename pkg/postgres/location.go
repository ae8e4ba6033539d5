package postgres

import (
	"context"
	"fmt"

	"github.com/handsofstluke/pantry/pkg/db"
)

// InsertSource inserts a pickup source record
func (d *DB) InsertSource(ctx context.Context, s *db.Source) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO sources (id, name, address, contact, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.Name, s.Address, s.Contact, s.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert source: %w", err)
	}
	return nil
}

// ListSources retrieves all pickup sources ordered by name
func (d *DB) ListSources(ctx context.Context) ([]db.Source, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, address, contact, notes FROM sources ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []db.Source
	for rows.Next() {
		var s db.Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Contact, &s.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sources: %w", err)
	}
	return sources, nil
}

// InsertRecipient inserts a delivery recipient record
func (d *DB) InsertRecipient(ctx context.Context, r *db.Recipient) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO recipients (id, name, address, contact, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.Name, r.Address, r.Contact, r.Notes)
	if err != nil {
		return fmt.Errorf("failed to insert recipient: %w", err)
	}
	return nil
}

// ListRecipients retrieves all delivery recipients ordered by name
func (d *DB) ListRecipients(ctx context.Context) ([]db.Recipient, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, name, address, contact, notes FROM recipients ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []db.Recipient
	for rows.Next() {
		var r db.Recipient
		if err := rows.Scan(&r.ID, &r.Name, &r.Address, &r.Contact, &r.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}
	return recipients, nil
}
