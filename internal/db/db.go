package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
	ConnMaxIdle  time.Duration
	PingTimeout  time.Duration
}

type DB struct {
	DB *sql.DB
}

// Open connects to MySQL and verifies the connection. Group metadata is the
// only thing read from it, so a small pool is the default.
func Open(opt Options) (*DB, error) {
	if opt.DSN == "" {
		return nil, fmt.Errorf("mysql: missing dsn")
	}
	d, err := sql.Open("mysql", opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if opt.MaxOpenConns <= 0 {
		opt.MaxOpenConns = 4
	}
	d.SetMaxOpenConns(opt.MaxOpenConns)
	if opt.MaxIdleConns > 0 {
		d.SetMaxIdleConns(opt.MaxIdleConns)
	}
	if opt.ConnMaxLife > 0 {
		d.SetConnMaxLifetime(opt.ConnMaxLife)
	}
	if opt.ConnMaxIdle > 0 {
		d.SetConnMaxIdleTime(opt.ConnMaxIdle)
	}
	if opt.PingTimeout <= 0 {
		opt.PingTimeout = 3 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), opt.PingTimeout)
	defer cancel()
	if err := d.PingContext(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &DB{DB: d}, nil
}

// OpenOptional returns a nil DB when no DSN is configured.
func OpenOptional(opt Options) (*DB, error) {
	if opt.DSN == "" {
		return nil, nil
	}
	return Open(opt)
}

func (d *DB) Close() error { return d.DB.Close() }
