package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Success(t *testing.T) {
	t.Setenv("SQLITE_DB_PATH", "")
	dbPath := filepath.Join(t.TempDir(), "success.db")
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	args := []string{"-user", "ann", "-email", "ann@example.com", "-currency", "eur", "-password", "correct horse", "-db", dbPath, "-fast-hash"}
	require.NoError(t, run(args, new(bytes.Buffer), stdout, stderr))
	assert.Contains(t, stdout.String(), "User ann created successfully")

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	u, err := repo.GetUserByUsername(context.Background(), "ann")
	require.NoError(t, err)
	p, err := repo.GetProfile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, core.EUR, p.DefaultCurrency)

	cats, err := repo.ListCategories(context.Background(), u.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, cats, "default categories are seeded")
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "duplicate.db")
	args := []string{"-user", "ann", "-password", "correct horse", "-db", dbPath, "-fast-hash"}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)))

	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		wantErr string
	}{
		{"missing user", []string{"-password", "correct horse"}, "", "missing required flags: user"},
		{"weak password", []string{"-user", "bob", "-password", "short"}, "", "at least 8 characters"},
		{"unknown currency", []string{"-user", "bob", "-password", "correct horse", "-currency", "XYZ"}, "", "invalid currency"},
		{"empty stdin", []string{"-user", "bob"}, "", "failed to read password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "-db", filepath.Join(t.TempDir(), "v.db"), "-fast-hash")
			stdout := new(bytes.Buffer)
			err := run(args, bytes.NewBufferString(tt.stdin), stdout, new(bytes.Buffer))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "interactive.db")
	stdout := new(bytes.Buffer)

	args := []string{"-user", "carol", "-db", dbPath, "-fast-hash"}
	require.NoError(t, run(args, bytes.NewBufferString("interactive secret\n"), stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "User carol created successfully")
}
