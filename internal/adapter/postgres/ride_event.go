package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

type RideEventRepo struct {
	db      *pgxpool.Pool
	service string
}

func NewRideEventRepo(db *pgxpool.Pool, service string) *RideEventRepo {
	return &RideEventRepo{db: db, service: service}
}

// CreateEvent inserts a new ride event into the database.
func (r *RideEventRepo) CreateEvent(ctx context.Context, rideID string, kind types.EventKind, data []byte) error {
	start := time.Now()

	query := `INSERT INTO ride_events (ride_id, event_type, event_data)
			  VALUES ($1, $2, $3);`

	_, err := TxorDB(ctx, r.db).Exec(ctx, query, rideID, kind.String(), data)
	metrics.RecordDatabaseQuery(r.service, "ride_event_create", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("ride event repo: CreateEvent: %w", err)
	}
	return nil
}
