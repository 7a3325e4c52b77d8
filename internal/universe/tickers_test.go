package universe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []string
	}{
		{"index column then tickers", ",Codigo\n0,PETR4\n1,VALE3\n2,ITUB4\n", []string{"PETR4", "VALE3", "ITUB4"}},
		{"named column anywhere", "name,ticker\nPetrobras,petr4\nVale,VALE3\n", []string{"PETR4", "VALE3"}},
		{"single column", "x\nBBAS3\nBBDC4\n", []string{"BBAS3", "BBDC4"}},
		{"bom and spaces", "\ufeffSymbol\n  WEGE3 \n\nWEGE3\n", []string{"WEGE3"}},
		{"fallback to second column", "idx,stock\n0,ABEV3\n1,\n", []string{"ABEV3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(strings.NewReader(tt.csv))
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Symbols())
		})
	}

	t.Run("empty file", func(t *testing.T) {
		_, err := Parse(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.csv")
	require.NoError(t, os.WriteFile(path, []byte(",Codigo\n0,PETR4\n1,PRIO3\n"), 0o644))

	u, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4", "PRIO3"}, u.Symbols())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestUniverse(t *testing.T) {
	u := New("PETR4", "PETR3", "PRIO3", "VALE3")

	assert.True(t, u.Contains("petr4"))
	assert.False(t, u.Contains("MGLU3"))
	assert.Equal(t, []string{"PETR4", "PETR3"}, u.Search("pet", 0))
	assert.Equal(t, []string{"PETR4"}, u.Search("P", 1))
	assert.Len(t, u.Search("", 0), 4)

	var none *Universe
	assert.True(t, none.Empty())
	assert.True(t, none.Contains("ANY"))
	assert.Nil(t, none.Symbols())
	assert.True(t, New().Contains("ANY"))
}
