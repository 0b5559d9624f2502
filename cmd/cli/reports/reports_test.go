package reports

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/crucial707/asset-custody/cmd/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExport_WritesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reports/export/assets", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Write([]byte("id,name\n1,Lenovo T14\n"))
	}))
	defer srv.Close()
	dir := t.TempDir()
	t.Setenv("CUSTODY_API_URL", srv.URL)
	t.Setenv("CUSTODY_TOKEN_FILE", filepath.Join(dir, "token"))
	require.NoError(t, config.SaveToken("tok"))

	dest := filepath.Join(dir, "assets.csv")
	cmd := exportCmd()
	require.NoError(t, cmd.Flags().Set("output", dest))
	require.NoError(t, cmd.RunE(cmd, []string{"assets"}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,Lenovo T14\n", string(data))
}

func TestExport_Unknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"unknown export nope"}`))
	}))
	defer srv.Close()
	dir := t.TempDir()
	t.Setenv("CUSTODY_API_URL", srv.URL)
	t.Setenv("CUSTODY_TOKEN_FILE", filepath.Join(dir, "token"))
	require.NoError(t, config.SaveToken("tok"))

	cmd := exportCmd()
	require.NoError(t, cmd.Flags().Set("output", filepath.Join(dir, "x.csv")))
	err := cmd.RunE(cmd, []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
