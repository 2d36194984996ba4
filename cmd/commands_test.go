package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/store"
	"github.com/sells-group/disclosure-cli/internal/tracker"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestConfigCommand_RedactsSecrets(t *testing.T) {
	withConfig(t, &config.Config{
		Groq:  config.ProviderConfig{APIKey: "gsk-secret", Model: "llama-3.3-70b-versatile"},
		Store: config.StoreConfig{Driver: "sheets"},
	})

	var out bytes.Buffer
	configCmd.SetOut(&out)
	t.Cleanup(func() { configCmd.SetOut(nil) })
	require.NoError(t, configCmd.RunE(configCmd, nil))

	assert.Contains(t, out.String(), "llama-3.3-70b-versatile")
	assert.Contains(t, out.String(), "driver: sheets")
	assert.NotContains(t, out.String(), "gsk-secret")
}

func TestExportCommand_CopiesRows(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "store.xlsx")
	withConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:   "xlsx",
		XLSXPath: src,
		Sheets:   config.SheetsConfig{SheetName: "Disclosures"},
	}})

	st, err := store.NewXLSX(src, "Disclosures")
	require.NoError(t, err)
	require.NoError(t, st.EnsureHeader(context.Background()))
	_, err = st.AppendRows(context.Background(), []model.Row{
		{Date: "02 MAY 2024", Company: "ACME PLC", Summary: "ACME PLC declared a final cash dividend.", UniqueKey: "k1"},
		{Date: "03 MAY 2024", Company: "BETA PLC", Summary: "BETA PLC — Rights Issue.", UniqueKey: "k2"},
	})
	require.NoError(t, err)

	exportOut = filepath.Join(dir, "out.xlsx")
	exportSheet = "Export"
	t.Cleanup(func() { exportOut, exportSheet = "disclosures-export.xlsx", "" })
	exportCmd.SetContext(context.Background())
	require.NoError(t, exportCmd.RunE(exportCmd, nil))

	got, err := store.NewXLSX(exportOut, "Export")
	require.NoError(t, err)
	rows, err := got.ReadAllRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "k1", rows[0].UniqueKey)
	assert.Equal(t, "BETA PLC — Rights Issue.", rows[1].Summary)
}

func TestExportCommand_ValidatesStore(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "postgres"}})
	exportCmd.SetContext(context.Background())

	err := exportCmd.RunE(exportCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")
}

func TestNewProvider(t *testing.T) {
	c := &config.Config{
		Groq:      config.ProviderConfig{APIKey: "g", Model: "m", BaseURL: "http://localhost:1", TimeoutSecs: 5},
		Gemini:    config.ProviderConfig{APIKey: "k", Model: "gemini-2.0-flash-lite", TimeoutSecs: 5},
		Anthropic: config.ProviderConfig{APIKey: "a", Model: "claude-haiku-4-5-20251001", TimeoutSecs: 5},
	}
	ctx := context.Background()

	for _, name := range []string{"groq", "gemini", "anthropic"} {
		p, err := newProvider(ctx, c, name)
		require.NoError(t, err, name)
		require.NotNil(t, p, name)
		assert.Equal(t, name, p.Name())
	}

	p, err := newProvider(ctx, c, "none")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = newProvider(ctx, c, "openai")
	require.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeReport(&out, &tracker.RunReport{RunID: "abc", Listed: 3}))
	assert.Contains(t, out.String(), `"run_id": "abc"`)
	assert.Contains(t, out.String(), `"listed": 3`)

	out.Reset()
	require.NoError(t, writeReport(&out, nil))
	assert.Empty(t, out.String())
}
