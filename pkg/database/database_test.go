package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T, name string) *DB {
	t.Helper()
	db, err := New(Config{Path: "file:" + name + "?mode=memory&cache=shared", MaxOpenConns: 1, MaxIdleConns: 1}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on", dsn(":memory:"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", dsn("x?mode=memory"))
	assert.Equal(t, "file:x?mode=memory&_foreign_keys=on", dsn("file:x?mode=memory"))
	assert.Equal(t, "file:data/claims.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", dsn("data/claims.db"))
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := openMemory(t, "migrations_idempotent")
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.RunMigrations())
	require.NoError(t, migrator.RunMigrations())

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 2, applied)

	for _, table := range []string{"submitters", "claims", "claim_line_items", "supporting_documents", "approval_history"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestRunMigrations_StatusIsAClosedSet(t *testing.T) {
	db := openMemory(t, "migrations_status_check")
	require.NoError(t, NewMigrator(db, zap.NewNop()).RunMigrations())

	_, err := db.Exec(`INSERT INTO submitters (name, email, default_rate_cents) VALUES ('a', 'a@example.com', 100)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO claims (claim_number, submitter_id, submitted_at, status) VALUES ('CLM-1', 1, CURRENT_TIMESTAMP, 'Paid')`)
	assert.Error(t, err)
}

func TestRunMigrations_PaymentFlagDefaultsToUnpaid(t *testing.T) {
	db := openMemory(t, "migrations_payment_flag")
	require.NoError(t, NewMigrator(db, zap.NewNop()).RunMigrations())

	_, err := db.Exec(`INSERT INTO submitters (name, email, default_rate_cents) VALUES ('a', 'a@example.com', 100)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO claims (claim_number, submitter_id, submitted_at, status) VALUES ('CLM-1', 1, CURRENT_TIMESTAMP, 'Settled')`)
	require.NoError(t, err)

	var paid bool
	require.NoError(t, db.QueryRow("SELECT payment_processed FROM claims WHERE claim_number = 'CLM-1'").Scan(&paid))
	assert.False(t, paid)

	_, err = db.Exec("UPDATE claims SET payment_processed = 2 WHERE claim_number = 'CLM-1'")
	assert.Error(t, err)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openMemory(t, "tx_rollback")
	_, err := db.Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 0, n)
}
