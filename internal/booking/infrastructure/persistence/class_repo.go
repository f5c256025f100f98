package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/booking/domain"
	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
)

const classColumns = `id, location_id, coach_id, name, class_type, room,
	start_time, end_time, capacity, status, version, created_at, updated_at`

// ClassRepository implements domain.ClassRepository on any database.Connection.
type ClassRepository struct {
	conn database.Connection
}

// NewClassRepository creates a class repository.
func NewClassRepository(conn database.Connection) *ClassRepository {
	return &ClassRepository{conn: conn}
}

// Save inserts a new class.
func (r *ClassRepository) Save(ctx context.Context, class *domain.FitnessClass) error {
	d := class.Details()
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO fitness_classes (`+classColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		class.ID(),
		d.LocationID,
		nullUUID(d.CoachID),
		d.Name,
		d.ClassType,
		d.Room,
		database.TimeArg(d.StartTime),
		database.TimeArg(d.EndTime),
		d.Capacity,
		string(class.Status()),
		class.Version(),
		database.TimeArg(class.CreatedAt()),
		database.TimeArg(class.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert class %s: %w", class.ID(), err)
	}
	return nil
}

// FindByID loads a class.
func (r *ClassRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.FitnessClass, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+classColumns+` FROM fitness_classes WHERE id = ?`, id)

	class, err := scanClass(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrClassNotFound
		}
		return nil, fmt.Errorf("find class %s: %w", id, err)
	}
	return class, nil
}

// UpdateVersioned writes status and updated_at guarded by the loaded version.
func (r *ClassRepository) UpdateVersioned(ctx context.Context, class *domain.FitnessClass) error {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE fitness_classes
		SET status = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		string(class.Status()),
		database.TimeArg(class.UpdatedAt()),
		class.ID(),
		class.Version(),
	)
	if err != nil {
		return fmt.Errorf("update class %s: %w", class.ID(), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update class %s: %w", class.ID(), err)
	}
	if n == 0 {
		return fmt.Errorf("class %s at version %d: %w", class.ID(), class.Version(), domain.ErrConcurrentModification)
	}

	class.IncrementVersion()
	return nil
}

// List returns classes starting in [from, to).
func (r *ClassRepository) List(ctx context.Context, from, to time.Time) ([]*domain.FitnessClass, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT `+classColumns+`
		FROM fitness_classes
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time, id
	`, database.TimeArg(from), database.TimeArg(to))
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	classes := make([]*domain.FitnessClass, 0)
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

func scanClass(row database.Row) (*domain.FitnessClass, error) {
	var (
		id, locationID        uuid.UUID
		coachID               uuid.NullUUID
		name, classType, room string
		start, end            database.Timestamp
		capacity, version     int
		status                string
		createdAt, updatedAt  database.Timestamp
	)
	if err := row.Scan(
		&id, &locationID, &coachID, &name, &classType, &room,
		&start, &end, &capacity, &status, &version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	return domain.RehydrateFitnessClass(
		id,
		domain.ClassDetails{
			LocationID: locationID,
			CoachID:    coachID.UUID,
			Name:       name,
			ClassType:  classType,
			Room:       room,
			StartTime:  start.Time,
			EndTime:    end.Time,
			Capacity:   capacity,
		},
		domain.ClassStatus(status),
		version,
		createdAt.Time,
		updatedAt.Time,
	), nil
}
