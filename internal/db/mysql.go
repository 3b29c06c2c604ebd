package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// mysqlDSN turns "user:pass@host:port/name?opts" into a go-sql-driver DSN,
// "user:pass@tcp(host:port)/name?parseTime=true".
func mysqlDSN(rest string) string {
	creds, hostPart := "", rest
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		creds, hostPart = rest[:i+1], rest[i+1:]
	}
	host, path, _ := strings.Cut(hostPart, "/")
	if host != "" && !strings.Contains(host, "(") {
		host = "tcp(" + host + ")"
	}
	dsn := creds + host + "/" + path
	if !strings.Contains(path, "parseTime=") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn += sep + "parseTime=true"
	}
	return dsn
}
