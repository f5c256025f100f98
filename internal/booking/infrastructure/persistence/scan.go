package persistence

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/classbook/internal/shared/infrastructure/database"
)

// nullUUID binds uuid.Nil as NULL.
func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// collectUUIDs drains single-column uuid rows.
func collectUUIDs(rows database.Rows) ([]uuid.UUID, error) {
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
