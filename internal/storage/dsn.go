package storage

import (
	"fmt"
	"strings"

	"reportstudio/internal/config"
)

// sqliteDSN opens the file in WAL mode with a busy timeout.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// postgresDSN builds a lib/pq connection string.
func postgresDSN(c config.StorageConfig) string {
	if c.URI != "" {
		return c.URI
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, port, c.User, c.Password, c.Database, sslMode,
	)
}

// mysqlDSN builds a go-sql-driver/mysql DSN.
func mysqlDSN(c config.StorageConfig) string {
	if c.URI != "" {
		return c.URI
	}
	port := c.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?charset=utf8mb4
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4",
		c.User, c.Password, c.Host, port, c.Database,
	)
	if c.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}

// mongoURI returns the connection URI and database name for MongoDB.
func mongoURI(c config.StorageConfig) (uri, database string) {
	database = c.Database
	if database == "" {
		database = "reportstudio"
	}
	if strings.HasPrefix(c.URI, "mongodb://") || strings.HasPrefix(c.URI, "mongodb+srv://") {
		uri = c.URI
		if c.Password != "" {
			// Atlas connection strings carry a password placeholder.
			uri = strings.ReplaceAll(uri, "<password>", c.Password)
			uri = strings.ReplaceAll(uri, "<db_password>", c.Password)
		}
		return uri, database
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 27017
	}
	if c.User != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", c.User, c.Password, host, port), database
	}
	return fmt.Sprintf("mongodb://%s:%d", host, port), database
}
