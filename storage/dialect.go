package storage

import (
	"fmt"
	"strconv"
	"strings"
)

type dialect struct {
	name   string
	driver string
	schema []string
	// positional reports whether placeholders must be rewritten to $n.
	positional bool
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT,
			description TEXT,
			latitude    REAL,
			longitude   REAL
		)`,
		`CREATE TABLE IF NOT EXISTS zillow_listings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			zpid       TEXT,
			status     TEXT,
			sold_price TEXT,
			address    TEXT,
			latitude   REAL,
			longitude  REAL,
			image_url  TEXT,
			detail_url TEXT,
			sold_date  TEXT,
			broker     TEXT
		)`,
	},
}

var postgresDialect = dialect{
	name:       "postgres",
	driver:     "postgres",
	positional: true,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS listings (
			id          SERIAL PRIMARY KEY,
			title       TEXT,
			description TEXT,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS zillow_listings (
			id         SERIAL PRIMARY KEY,
			zpid       TEXT,
			status     TEXT,
			sold_price TEXT,
			address    TEXT,
			latitude   DOUBLE PRECISION,
			longitude  DOUBLE PRECISION,
			image_url  TEXT,
			detail_url TEXT,
			sold_date  TEXT,
			broker     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_zillow_listings_zpid ON zillow_listings(zpid)`,
	},
}

func dialectFor(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect, nil
	case "postgres", "postgresql":
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("storage: unsupported driver %q", name)
}

// rebind rewrites ? placeholders into $1, $2, ... for drivers that need it.
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
