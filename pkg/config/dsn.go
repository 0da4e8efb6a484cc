package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParsedDatabaseURL holds the components of a postgres:// connection URL.
type ParsedDatabaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ParseDatabaseURL parses a 12-Factor style database URL into its components.
func ParseDatabaseURL(raw string) (*ParsedDatabaseURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("unsupported database URL scheme: %s", u.Scheme)
	}

	parsed := &ParsedDatabaseURL{
		Host:     u.Hostname(),
		Port:     5432,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid database URL port: %w", err)
		}
		parsed.Port = port
	}

	if u.User != nil {
		parsed.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			parsed.Password = pw
		}
	}

	if mode := u.Query().Get("sslmode"); mode != "" {
		parsed.SSLMode = mode
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("database URL is missing a host")
	}
	if parsed.Database == "" {
		return nil, fmt.Errorf("database URL is missing a database name")
	}

	return parsed, nil
}

// ToDSN renders the parsed URL as a libpq keyword/value DSN.
func (p *ParsedDatabaseURL) ToDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}
