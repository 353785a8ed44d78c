package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/metrics"
)

type RideRepo struct {
	db      *pgxpool.Pool
	service string
}

func NewRideRepo(db *pgxpool.Pool, service string) *RideRepo {
	return &RideRepo{db: db, service: service}
}

func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) (err error) {
	defer r.observe("ride_create", time.Now(), &err)

	query := `
        INSERT INTO rides (id, rider_id, pickup, destination, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, ride.RiderID, ride.Pickup, ride.Destination, ride.Status, ride.CreatedAt, ride.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ride repo: Create: %w", err)
	}
	return nil
}

func (r *RideRepo) Get(ctx context.Context, rideID string) (_ *models.Ride, err error) {
	defer r.observe("ride_get", time.Now(), &err)

	query := `
        SELECT
            id::text, rider_id, COALESCE(driver_id, ''), pickup, destination, status,
            fare::float8, distance_km::float8, cancellation_reason, created_at, updated_at
        FROM rides
        WHERE id = $1;`

	var ride models.Ride
	err = TxorDB(ctx, r.db).QueryRow(ctx, query, rideID).Scan(
		&ride.ID, &ride.RiderID, &ride.DriverID, &ride.Pickup, &ride.Destination, &ride.Status,
		&ride.Fare, &ride.DistanceKm, &ride.CancellationReason, &ride.CreatedAt, &ride.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrRideNotFound
		}
		return nil, fmt.Errorf("ride repo: Get: %w", err)
	}
	return &ride, nil
}

// UpdateStatus is a single conditional UPDATE: it only matches while the ride
// is still in the expected status, so concurrent writers cannot both succeed.
// The driver column is written only when it is still empty.
func (r *RideRepo) UpdateStatus(ctx context.Context, rideID string, expected, next types.RideStatus, upd models.RideUpdate) (_ bool, err error) {
	defer r.observe("ride_update_status", time.Now(), &err)

	query := `
        UPDATE rides
        SET
            status = $3,
            driver_id = COALESCE(driver_id, NULLIF($4, '')),
            fare = COALESCE($5, fare),
            distance_km = COALESCE($6, distance_km),
            cancellation_reason = COALESCE($7, cancellation_reason),
            updated_at = COALESCE($8, now())
        WHERE id = $1 AND status = $2;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		rideID, expected, next, upd.DriverID, upd.Fare, upd.DistanceKm, upd.CancellationReason, updatedAt(upd),
	)
	if err != nil {
		return false, fmt.Errorf("ride repo: UpdateStatus: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// updatedAt returns nil when the caller left the timestamp to the database.
func updatedAt(upd models.RideUpdate) *time.Time {
	if upd.UpdatedAt.IsZero() {
		return nil
	}
	return &upd.UpdatedAt
}

func (r *RideRepo) observe(operation string, start time.Time, err *error) {
	metrics.RecordDatabaseQuery(r.service, operation, *err, time.Since(start))
}
