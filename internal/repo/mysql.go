package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MySQL keeps the blob in a two-column key/value table.
type MySQL struct {
	db    *sql.DB
	table string
	key   string
}

func NewMySQL(db *sql.DB, table, key string) (*MySQL, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &MySQL{db: db, table: table, key: key}, nil
}

// Migrate creates the state table when it does not exist.
func (m *MySQL) Migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS `%s` ("+
			"`state_key` VARCHAR(191) NOT NULL PRIMARY KEY, "+
			"`blob` LONGBLOB NOT NULL, "+
			"`updated_at` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP"+
			")", m.table))
	return err
}

func (m *MySQL) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT `blob` FROM `%s` WHERE `state_key` = ?", m.table), m.key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

func (m *MySQL) Save(ctx context.Context, blob []byte) error {
	_, err := m.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO `%s` (`state_key`, `blob`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `blob` = VALUES(`blob`)", m.table),
		m.key, blob)
	return err
}
