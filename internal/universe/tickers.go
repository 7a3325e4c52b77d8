// Package universe holds the static list of tickers users may pick from.
package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Universe is an ordered set of ticker symbols. The zero value and a nil
// pointer accept every ticker.
type Universe struct {
	symbols []string
	index   map[string]struct{}
}

var symbolHeaders = map[string]bool{"ticker": true, "tickers": true, "symbol": true, "codigo": true, "código": true}

// Load reads a universe from a CSV file.
func Load(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

// Parse reads a CSV with a header row. The symbol column is the one with a
// ticker/symbol header, else the second column (the first being a row
// index), else the only column.
func Parse(r io.Reader) (*Universe, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("ticker file is empty")
	}
	if err != nil {
		return nil, err
	}

	col := -1
	for i, h := range header {
		if symbolHeaders[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] {
			col = i
			break
		}
	}
	if col < 0 {
		col = 0
		if len(header) > 1 {
			col = 1
		}
	}

	var symbols []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if col < len(rec) {
			symbols = append(symbols, rec[col])
		}
	}
	return New(symbols...), nil
}

// New builds a universe, upper-casing and de-duplicating symbols.
func New(symbols ...string) *Universe {
	u := &Universe{index: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := u.index[s]; ok {
			continue
		}
		u.index[s] = struct{}{}
		u.symbols = append(u.symbols, s)
	}
	return u
}

// Empty reports whether the universe has no symbols and so restricts nothing.
func (u *Universe) Empty() bool { return u == nil || len(u.symbols) == 0 }

// Contains reports whether symbol may be selected.
func (u *Universe) Contains(symbol string) bool {
	if u.Empty() {
		return true
	}
	_, ok := u.index[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// Symbols returns a copy of the symbols in file order.
func (u *Universe) Symbols() []string {
	if u == nil {
		return nil
	}
	return append([]string(nil), u.symbols...)
}

// Search returns up to limit symbols starting with prefix (all when limit <= 0).
func (u *Universe) Search(prefix string, limit int) []string {
	if u == nil {
		return nil
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	var out []string
	for _, s := range u.symbols {
		if !strings.HasPrefix(s, prefix) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
