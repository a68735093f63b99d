package cmd

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/leadgrid/crawl-gateway/internal/config"
	"github.com/leadgrid/crawl-gateway/internal/db"
	"github.com/leadgrid/crawl-gateway/internal/token"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo tenant...")

		if err := seedAccounts(sqlDB); err != nil {
			return err
		}
		if err := seedUsers(sqlDB); err != nil {
			return err
		}
		if err := seedLeadSources(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedAccounts upserts the demo accounts (idempotent on name).
func seedAccounts(dbx *sqlx.DB) error {
	const q = `
INSERT INTO accounts (name, domain, status, created_at, updated_at)
VALUES (?, ?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
    domain     = VALUES(domain),
    status     = VALUES(status),
    updated_at = NOW()
`
	accounts := []struct {
		name, domain, status string
	}{
		{"Acme Leads", "acme.test", "active"},
		{"Suspended Inc", "suspended.test", "suspended"},
	}
	for _, a := range accounts {
		if _, err := dbx.Exec(q, a.name, a.domain, a.status); err != nil {
			return fmt.Errorf("insert account %q: %w", a.name, err)
		}
	}
	return nil
}

// seedUsers upserts demo users; passwords are bcrypt-hashed here so the
// seed never stores plaintext.
func seedUsers(dbx *sqlx.DB) error {
	const q = `
INSERT INTO users (account_id, name, email, password_hash, role, status, created_at, updated_at)
SELECT a.id, ?, ?, ?, ?, ?, NOW(), NOW()
FROM accounts a WHERE a.name = ?
ON DUPLICATE KEY UPDATE
    password_hash = VALUES(password_hash),
    role          = VALUES(role),
    status        = VALUES(status),
    updated_at    = NOW()
`
	users := []struct {
		name, email, password, role, status, account string
	}{
		{"Demo Admin", "admin@acme.test", "admin-password", "admin", "active", "Acme Leads"},
		{"Demo Member", "member@acme.test", "member-password", "member", "active", "Acme Leads"},
		{"Locked Out", "locked@acme.test", "locked-password", "member", "suspended", "Acme Leads"},
	}
	for _, u := range users {
		hash, err := token.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", u.email, err)
		}
		if _, err := dbx.Exec(q, u.name, u.email, hash, u.role, u.status, u.account); err != nil {
			return fmt.Errorf("insert user %q: %w", u.email, err)
		}
	}
	return nil
}

// seedLeadSources upserts the demo sources and enables them for the
// demo account.
func seedLeadSources(dbx *sqlx.DB) error {
	const srcQ = `
INSERT INTO lead_sources (name, description, is_active, input_schema, created_at, updated_at)
VALUES (?, ?, ?, ?, NOW(), NOW())
ON DUPLICATE KEY UPDATE
    description  = VALUES(description),
    is_active    = VALUES(is_active),
    input_schema = VALUES(input_schema),
    updated_at   = NOW()
`
	sources := []struct {
		name, description string
		active            bool
		schema            string
	}{
		{
			"google-maps", "Business listings from map search results", true,
			`{
  "properties": {
    "keyword":   {"type": "string", "description": "Search term", "minLength": 2, "maxLength": 120},
    "location":  {"type": "string", "description": "City or region"},
    "max_pages": {"type": "number", "minimum": 1, "maximum": 50, "default": 5},
    "language":  {"type": "string", "enum": ["en", "de", "fr", "es"]}
  },
  "required": ["keyword", "location"]
}`,
		},
		{
			"yellow-pages", "Directory listings by category", true,
			`{
  "properties": {
    "keyword":         {"type": "string", "minLength": 2},
    "include_reviews": {"type": "boolean", "default": false}
  },
  "required": ["keyword"]
}`,
		},
		{
			"legacy-directory", "Retired source kept for history", false,
			`{"properties": {}, "required": []}`,
		},
	}
	for _, s := range sources {
		if _, err := dbx.Exec(srcQ, s.name, s.description, s.active, s.schema); err != nil {
			return fmt.Errorf("insert source %q: %w", s.name, err)
		}
	}

	// enable all active sources for the demo account
	const enableQ = `
INSERT INTO account_lead_sources (account_id, source_id, is_enabled)
SELECT a.id, s.id, 1
FROM accounts a
JOIN lead_sources s ON s.is_active = 1
WHERE a.name = 'Acme Leads'
ON DUPLICATE KEY UPDATE is_enabled = 1
`
	if _, err := dbx.Exec(enableQ); err != nil {
		return fmt.Errorf("enable sources: %w", err)
	}
	return nil
}
