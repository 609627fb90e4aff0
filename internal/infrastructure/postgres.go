package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresClient{Pool: pool}, nil
}

// Migrate creates the schema and seeds the singleton settings row and the
// owner's admin record. Safe to run on every start.
func (p *PostgresClient) Migrate(ownerID int64, ownerName string) error {
	ctx := context.Background()

	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			language_code TEXT,
			is_premium BOOLEAN DEFAULT FALSE,
			credits INT NOT NULL DEFAULT 0 CHECK (credits >= 0),
			invited_by BIGINT,
			invite_code TEXT UNIQUE,
			total_invites INT NOT NULL DEFAULT 0,
			join_date TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT now(),
			is_banned BOOLEAN NOT NULL DEFAULT FALSE,
			metadata JSONB NOT NULL DEFAULT '{}'
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS invites (
			id BIGSERIAL PRIMARY KEY,
			inviter_id BIGINT NOT NULL REFERENCES users (user_id),
			invitee_id BIGINT NOT NULL,
			invite_code TEXT NOT NULL,
			used_date TIMESTAMPTZ NOT NULL DEFAULT now(),
			credits_awarded BOOLEAN NOT NULL DEFAULT FALSE
		);
	`)
	if err != nil {
		return fmt.Errorf("create invites table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activity_log (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			activity_type TEXT NOT NULL,
			activity_details TEXT,
			credits_used INT NOT NULL DEFAULT 0,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("create activity_log table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS admin_settings (
			id INT PRIMARY KEY CHECK (id = 1),
			admin_user_id BIGINT,
			channel_1 TEXT NOT NULL DEFAULT '',
			channel_2 TEXT NOT NULL DEFAULT '',
			credits_per_invite INT NOT NULL DEFAULT 2,
			starting_credits INT NOT NULL DEFAULT 10,
			last_admin_action TIMESTAMPTZ
		);
	`)
	if err != nil {
		return fmt.Errorf("create admin_settings table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bot_admins (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT UNIQUE NOT NULL,
			username TEXT,
			added_by BIGINT,
			is_owner BOOLEAN NOT NULL DEFAULT FALSE,
			can_export BOOLEAN NOT NULL DEFAULT FALSE,
			status TEXT NOT NULL DEFAULT 'active',
			added_date TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("create bot_admins table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS admin_log (
			id BIGSERIAL PRIMARY KEY,
			admin_id BIGINT NOT NULL,
			action_type TEXT NOT NULL,
			action_details TEXT,
			status TEXT NOT NULL DEFAULT 'success',
			session_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	if err != nil {
		return fmt.Errorf("create admin_log table: %w", err)
	}

	// Seed singleton settings and the owner's admin record
	_, err = p.Pool.Exec(ctx, `
		INSERT INTO admin_settings (id, admin_user_id)
		VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING;
	`, ownerID)
	if err != nil {
		return fmt.Errorf("seed admin_settings: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		INSERT INTO bot_admins (user_id, username, is_owner, can_export, added_by)
		VALUES ($1, $2, TRUE, TRUE, $1)
		ON CONFLICT (user_id) DO NOTHING;
	`, ownerID, ownerName)
	if err != nil {
		return fmt.Errorf("seed owner admin: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
