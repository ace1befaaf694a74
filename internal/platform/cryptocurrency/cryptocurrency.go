// Package cryptocurrency knows which symbols denote cryptocurrencies quoted in USD.
package cryptocurrency

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"folio_backend/internal/shared/currency"
)

//go:embed assets/*.json
var assets embed.FS

// Service は暗号資産シンボル（例: BTCUSD）の判定を提供します。
type Service struct {
	once    sync.Once
	symbols map[string]struct{}
	err     error
}

func NewService() *Service {
	return &Service{}
}

// IsCryptocurrency reports whether symbol is "<coin>USD" for a known coin.
func (s *Service) IsCryptocurrency(symbol string) bool {
	if !strings.HasSuffix(symbol, currency.Default) {
		return false
	}
	s.once.Do(s.load)
	if s.err != nil {
		return false
	}
	_, ok := s.symbols[strings.TrimSuffix(symbol, currency.Default)]
	return ok
}

// Err returns the error encountered while loading the embedded lists, if any.
func (s *Service) Err() error {
	s.once.Do(s.load)
	return s.err
}

func (s *Service) load() {
	s.symbols = map[string]struct{}{}
	for _, name := range []string{"assets/cryptocurrencies.json", "assets/custom.json"} {
		b, err := assets.ReadFile(name)
		if err != nil {
			s.err = fmt.Errorf("read %s: %w", name, err)
			return
		}
		var m map[string]string
		if err := json.Unmarshal(b, &m); err != nil {
			s.err = fmt.Errorf("parse %s: %w", name, err)
			return
		}
		for k := range m {
			s.symbols[k] = struct{}{}
		}
	}
}
