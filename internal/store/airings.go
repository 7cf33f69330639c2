package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const pruneBatchLimit = 500

// UpsertAiring inserts an airing keyed on (show, season, episode), or
// refreshes its mutable fields when the episode is already stored. The
// boolean reports whether a new row was inserted.
func (s *Store) UpsertAiring(ctx context.Context, airing *Airing) (bool, error) {
	var existingID int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id FROM airings WHERE show_tmdb_id = ? AND season = ? AND episode = ?`,
		airing.ShowTMDBID,
		airing.Season,
		airing.Episode,
	).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := s.db.ExecContext(
			ctx,
			`INSERT INTO airings (show_tmdb_id, entity_id, season, episode, title, network, air_date)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			airing.ShowTMDBID,
			airing.EntityID,
			airing.Season,
			airing.Episode,
			nullableString(airing.Title),
			nullableString(airing.Network),
			formatTime(airing.AirDate),
		)
		if err != nil {
			return false, fmt.Errorf("insert airing: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("lookup airing: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE airings SET entity_id = ?, title = ?, network = ?, air_date = ? WHERE id = ?`,
		airing.EntityID,
		nullableString(airing.Title),
		nullableString(airing.Network),
		formatTime(airing.AirDate),
		existingID,
	)
	if err != nil {
		return false, fmt.Errorf("update airing: %w", err)
	}
	return false, nil
}

// AiringsInWindow returns airings with air dates inside [from, to), ordered by
// air date.
func (s *Store) AiringsInWindow(ctx context.Context, from, to time.Time) ([]Airing, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, show_tmdb_id, entity_id, season, episode, title, network, air_date
         FROM airings WHERE air_date >= ? AND air_date < ? ORDER BY air_date, show_tmdb_id, season, episode`,
		formatTime(from),
		formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("airings in window: %w", err)
	}
	defer rows.Close()

	var airings []Airing
	for rows.Next() {
		airing, err := scanAiring(rows)
		if err != nil {
			return nil, err
		}
		airings = append(airings, *airing)
	}
	return airings, rows.Err()
}

// PruneAirings deletes airings whose linked entity is gone or no longer
// eligible for the calendar, at most a batch at a time so a long backlog
// never holds the database for one huge delete. It returns the number of
// rows removed.
func (s *Store) PruneAirings(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM airings WHERE id IN (
            SELECT a.id FROM airings a
            LEFT JOIN media_entities e ON e.id = a.entity_id
            WHERE a.entity_id IS NULL
               OR e.id IS NULL
               OR e.trending_score <= 0
               OR NOT EXISTS (SELECT 1 FROM ratings r WHERE r.entity_id = e.id AND r.source = ?)
            ORDER BY a.air_date
            LIMIT ?
         )`,
		RatingSourceCommunity,
		pruneBatchLimit,
	)
	if err != nil {
		return 0, fmt.Errorf("prune airings: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune airings count: %w", err)
	}
	return deleted, nil
}

func scanAiring(rows *sql.Rows) (*Airing, error) {
	var (
		airing   Airing
		entityID sql.NullInt64
		title    sql.NullString
		network  sql.NullString
		airedRaw string
	)
	if err := rows.Scan(
		&airing.ID,
		&airing.ShowTMDBID,
		&entityID,
		&airing.Season,
		&airing.Episode,
		&title,
		&network,
		&airedRaw,
	); err != nil {
		return nil, err
	}
	if entityID.Valid {
		airing.EntityID = &entityID.Int64
	}
	airing.Title = title.String
	airing.Network = network.String
	if aired, err := parseTimeString(airedRaw); err == nil {
		airing.AirDate = aired
	}
	return &airing, nil
}
