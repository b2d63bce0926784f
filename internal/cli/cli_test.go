package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/config"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"4.5", "$4.50"},
		{"95.5", "$95.50"},
		{"1234.5", "$1,234.50"},
		{"1234567.891", "$1,234,567.89"},
		{"-3", "-$3.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatNumberAndTruncate(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "-12,345", FormatNumber(-12345))

	assert.Equal(t, "Coffee", Truncate("Coffee", 10))
	assert.Equal(t, "Cof…", Truncate("Coffee", 4))
	assert.Equal(t, "5%", FormatPercent(5))
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(Table{
		Title:   "Expenses",
		Headers: []string{"ID", "Description", "Amount"},
		Rows: [][]string{
			{"1", "Coffee", "$4.50"},
			{"---"},
			{"", "Total", "$4.50"},
		},
	})

	assert.Contains(t, out, "Expenses")
	assert.Contains(t, out, "Description")
	assert.Contains(t, out, "Coffee")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8, out)
	width := lipgloss.Width(lines[1])
	for _, l := range lines[1:] {
		assert.Equal(t, width, lipgloss.Width(l), "every table line has the same width")
	}
	assert.Empty(t, RenderTable(Table{}))
}

func TestRenderBar(t *testing.T) {
	d := decimal.RequireFromString
	assert.Equal(t, 10, lipgloss.Width(RenderBar(d("4.5"), d("100"), 10)))
	assert.Equal(t, strings.Repeat("░", 10), RenderBar(d("0"), d("100"), 10))
	assert.Contains(t, RenderBar(d("0.01"), d("100"), 10), "█", "tiny values stay visible")
	assert.Equal(t, strings.Repeat("█", 10), RenderBar(d("300"), d("100"), 10))
}

func TestRenderBudgetBar(t *testing.T) {
	assert.Contains(t, RenderBudgetBar(5, 20), "5%")
	assert.Contains(t, RenderBudgetBar(150, 20), strings.Repeat("█", 20))
	assert.Empty(t, RenderBudgetBar(50, 0))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPENDWISE_TEST_VALUE=from-dotenv\n"), 0o644))
	t.Setenv("SPENDWISE_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("SPENDWISE_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("SPENDWISE_TEST_VALUE"))
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogFormat = "json"

	logger, err := SetupLogger(cfg, &buf)
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	cfg.LogLevel = "loud"
	_, err = SetupLogger(cfg, &buf)
	assert.Error(t, err)
}
