package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tunebox/internal/config"
)

func TestDSN(t *testing.T) {
	require.Equal(t, "postgres://u@h/db", DSN(config.DatabaseConfig{DSN: "postgres://u@h/db", Host: "ignored"}))
	require.Equal(t,
		"host=localhost port=5432 user=tb password=pw dbname=tunebox sslmode=disable",
		DSN(config.DatabaseConfig{Host: "localhost", Port: 5432, User: "tb", Password: "pw", DBName: "tunebox"}),
	)
	require.Contains(t, DSN(config.DatabaseConfig{Host: "h", SSLMode: "require"}), "sslmode=require")
}

func TestMigrationFiles(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "001_init.sql", files[0])
}
