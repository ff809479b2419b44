package main

import (
	"bytes"
	"strings"
	"testing"

	"multi-merchant-settlement/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_FromArgument(t *testing.T) {
	cmd := hashPasswordCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"s3cret-pass"})

	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	ok, err := service.NewArgon2HashService().Verify("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_FromStdin(t *testing.T) {
	cmd := hashPasswordCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("piped-pass\n"))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	ok, err := service.NewArgon2HashService().Verify("piped-pass", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPassword_EmptyRejected(t *testing.T) {
	cmd := hashPasswordCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("\n"))
	cmd.SetArgs([]string{})

	assert.Error(t, cmd.Execute())
}

func TestSync_FlagsMutuallyExclusive(t *testing.T) {
	cmd := syncCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--order", "5", "--sale", "8a3b0f5e-0000-4000-8000-000000000000"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestTestCredentials_RequiresMerchant(t *testing.T) {
	cmd := testCredentialsCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--user", "7"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user and --site")
}

func TestLedger_RequiresMerchant(t *testing.T) {
	cmd := ledgerCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--site", "3"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user and --site")
}
