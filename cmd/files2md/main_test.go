// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/files2md/internal/convert"
	"github.com/pdiddy/files2md/pkg/types"
)

// newExportCommand returns a detached command carrying the export flags,
// bound to a private viper instance.
func newExportCommand(t *testing.T, args ...string) (*cobra.Command, *viper.Viper) {
	t.Helper()
	cmd := &cobra.Command{Use: "export"}
	addExportFlags(cmd.Flags())
	v := viper.New()
	for _, c := range credentials {
		require.NoError(t, v.BindPFlag(c.key, cmd.Flags().Lookup(c.flag)))
	}
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, v
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, c := range credentials {
		if old, ok := os.LookupEnv(c.env); ok {
			require.NoError(t, os.Unsetenv(c.env))
			t.Cleanup(func() { os.Setenv(c.env, old) })
		}
	}
}

func TestApplyFallbacks_Precedence(t *testing.T) {
	clearCredentialEnv(t)

	cmd, v := newExportCommand(t, "--api-key", "from-flag")
	t.Setenv("ZOTERO_LIBRARY_ID", "7")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	dotenv := map[string]string{
		"ZOTERO_API_KEY":      "from-dotenv",
		"ZOTERO_LIBRARY_ID":   "8",
		"ZOTERO_LIBRARY_TYPE": "group",
	}
	keyFiles := map[string]string{
		"zotero-api-key":      "from-secrets",
		"zotero-library-type": "user",
	}
	applyFallbacks(v, cmd.Flags(), dotenv, keyFiles)

	assert.Equal(t, "from-flag", v.GetString("api_key"), "flag beats everything")
	assert.Equal(t, "7", v.GetString("library_id"), "environment beats .env")
	assert.Equal(t, "group", v.GetString("library_type"), ".env beats .secrets")
}

func TestApplyFallbacks_SecretsBeatConfigFile(t *testing.T) {
	clearCredentialEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "files2md.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("api_key: from-config\nlibrary_id: 99\n"), 0o644))

	cmd, v := newExportCommand(t)
	v.SetConfigFile(cfgPath)
	require.NoError(t, v.ReadInConfig())

	applyFallbacks(v, cmd.Flags(), nil, map[string]string{"zotero-api-key": "from-secrets"})

	assert.Equal(t, "from-secrets", v.GetString("api_key"))
	assert.Equal(t, "99", v.GetString("library_id"), "config file used when nothing else sets it")
	assert.Equal(t, "user", v.GetString("library_type"), "flag default is the last resort")
}

func TestLibrarySelector(t *testing.T) {
	clearCredentialEnv(t)

	tests := []struct {
		name    string
		args    []string
		want    types.LibrarySelector
		wantErr string
	}{
		{
			name: "user library",
			args: []string{"--api-key", "k", "--library-id", "123"},
			want: types.LibrarySelector{ID: 123, Kind: types.LibraryUser, APIKey: "k"},
		},
		{
			name: "plural group type",
			args: []string{"--api-key", "k", "--library-id", "5", "--library-type", "Groups"},
			want: types.LibrarySelector{ID: 5, Kind: types.LibraryGroup, APIKey: "k"},
		},
		{name: "missing id", args: []string{"--api-key", "k"}, wantErr: "library id is required"},
		{name: "non-numeric id", args: []string{"--api-key", "k", "--library-id", "abc"}, wantErr: "not a number"},
		{name: "missing key", args: []string{"--library-id", "1"}, wantErr: "api key is required"},
		{name: "bad type", args: []string{"--api-key", "k", "--library-id", "1", "--library-type", "team"}, wantErr: "unknown library type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, v := newExportCommand(t, tt.args...)
			got, err := librarySelector(v)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, types.ErrInvalidSelector))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPConfig(t *testing.T) {
	cmd, v := newExportCommand(t, "--max-retries", "2", "--timeout", "15s")
	require.NoError(t, v.BindPFlag("timeout", cmd.Flags().Lookup("timeout")))
	require.NoError(t, v.BindPFlag("max_retries", cmd.Flags().Lookup("max-retries")))

	cfg, err := httpConfig(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "files2md/"+version, cfg.UserAgent)

	cfg, err = httpConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Zero(t, cfg.MaxRetries, "zero leaves the transport default")

	v = viper.New()
	v.Set("max_retries", -1)
	_, err = httpConfig(v)
	assert.ErrorContains(t, err, "--max-retries")
}

func TestAttachmentFilter(t *testing.T) {
	cmd, _ := newExportCommand(t,
		"--collection", "ABCD1234,EFGH5678",
		"--tag", "to read, later",
		"--tag", "ml",
		"--filter-mode", "ANY",
		"--limit", "0",
	)
	f, err := attachmentFilter(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{"ABCD1234", "EFGH5678"}, f.Collections)
	assert.Equal(t, []string{"to read, later", "ml"}, f.Tags)
	assert.Equal(t, types.FilterAny, f.Mode)
	require.NotNil(t, f.Limit)
	assert.Equal(t, 0, *f.Limit)

	cmd, _ = newExportCommand(t)
	f, err = attachmentFilter(cmd)
	require.NoError(t, err)
	assert.True(t, f.Unrestricted())
	assert.Nil(t, f.Limit, "no cap unless --limit is given")
	assert.Equal(t, types.FilterAll, f.Mode)

	cmd, _ = newExportCommand(t, "--limit", "-1")
	_, err = attachmentFilter(cmd)
	assert.ErrorContains(t, err, "must not be negative")

	cmd, _ = newExportCommand(t, "--filter-mode", "xor")
	_, err = attachmentFilter(cmd)
	assert.ErrorContains(t, err, "--filter-mode")
}

func TestExportSettings(t *testing.T) {
	cmd, _ := newExportCommand(t,
		"--overwrite", "--skip-existing", "--dry-run",
		"--chunk-size", "25",
		"--converter-option", "sanitize=false",
		"--converter-option", "page_break=\n---\n",
	)
	s, err := exportSettings(cmd, "/tmp/out")
	require.NoError(t, err)
	assert.Equal(t, types.ExportSettings{
		OutputDir:    "/tmp/out",
		Overwrite:    true,
		SkipExisting: true,
		DryRun:       true,
		PageSize:     25,
		ConverterOptions: map[string]string{
			convert.OptionSanitize:  "false",
			convert.OptionPageBreak: "\n---\n",
		},
	}, s)

	for _, bad := range []string{"0", "101"} {
		cmd, _ = newExportCommand(t, "--chunk-size", bad)
		_, err = exportSettings(cmd, "/tmp/out")
		assert.ErrorContains(t, err, "--chunk-size")
	}
}

func TestParseConverterOptions(t *testing.T) {
	got, err := parseConverterOptions([]string{"backend=native", "domain=example.org", "backend=markitdown", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"backend": "markitdown", "domain": "example.org", "empty": ""}, got)

	got, err = parseConverterOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, bad := range []string{"novalue", "=x", " =x"} {
		_, err := parseConverterOptions([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	s := types.ExportSummary{RunID: "run-1", Counts: map[types.Disposition]int{types.DispositionWritten: 1}}
	require.NoError(t, writeReport(path, s, "json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-1"`)

	assert.Error(t, writeReport(filepath.Join(t.TempDir(), "missing", "r.yaml"), s, "yaml"))
}
