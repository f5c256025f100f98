package database

import "strings"

// Driver names a storage backend.
type Driver string

// Supported drivers.
const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

func (d Driver) String() string {
	return string(d)
}

// IsValid reports whether d is a backend this module ships.
func (d Driver) IsValid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

var (
	postgresPrefixes = []string{"postgres://", "postgresql://"}
	sqlitePrefixes   = []string{"sqlite://", "file:"}
	sqliteSuffixes   = []string{".db", ".sqlite", ".sqlite3"}
)

// DetectDriver guesses the backend from a connection string. An empty URL
// means the local SQLite file; anything unrecognised is assumed Postgres.
func DetectDriver(url string) Driver {
	switch {
	case url == "":
		return DriverSQLite
	case hasAny(url, strings.HasPrefix, postgresPrefixes):
		return DriverPostgres
	case hasAny(url, strings.HasPrefix, sqlitePrefixes), hasAny(url, strings.HasSuffix, sqliteSuffixes):
		return DriverSQLite
	}
	return DriverPostgres
}

func hasAny(s string, match func(string, string) bool, affixes []string) bool {
	for _, a := range affixes {
		if match(s, a) {
			return true
		}
	}
	return false
}

// ParseDriver maps a DATABASE_DRIVER value to a Driver. Empty and "auto"
// defer to DetectDriver(url). Unknown names come back as-is and fail IsValid.
func ParseDriver(name, url string) Driver {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return DetectDriver(url)
	case "postgres", "postgresql", "pgx":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	}
	return Driver(name)
}
