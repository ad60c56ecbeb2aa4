package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates the tables of a fresh database.
// Indexes are created by createIndexes once the bulk load is done.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createTemplatesTable(tx); err != nil {
			return err
		}
		if err := createNetsTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Debug("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createTemplatesTable creates the templates table
func createTemplatesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create templates table: %w", err)
	}
	return nil
}

// createNetsTable creates the nets table: one row per canonical net per template
func createNetsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS nets (
			id INTEGER PRIMARY KEY,
			template_id INTEGER NOT NULL,
			net_name TEXT NOT NULL,

			FOREIGN KEY (template_id) REFERENCES templates(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create nets table: %w", err)
	}
	return nil
}

// createIndexes builds the lookup indexes after the bulk insert
func createIndexes(tx *sql.Tx) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_templates_name ON templates(name)",
		"CREATE INDEX IF NOT EXISTS idx_nets_template ON nets(template_id)",
		"CREATE INDEX IF NOT EXISTS idx_nets_name ON nets(net_name)",
		"CREATE INDEX IF NOT EXISTS idx_nets_template_name ON nets(template_id, net_name)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
