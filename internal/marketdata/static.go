package marketdata

import (
	"context"
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/comps-valuation/internal/model"
)

//go:embed snapshot.yaml
var defaultSnapshot []byte

// ErrUnknownTicker is returned by Static for tickers outside its snapshot.
var ErrUnknownTicker = eris.New("marketdata: ticker not in snapshot")

// Static serves fixed metrics from a YAML snapshot keyed by ticker.
type Static struct {
	byTicker map[string]model.Financials
}

// LoadStatic reads a snapshot file. An empty path loads the embedded one.
func LoadStatic(path string) (*Static, error) {
	data := defaultSnapshot
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "marketdata: read snapshot %s", path)
		}
		data = raw
	}
	return ParseStatic(data)
}

// ParseStatic decodes snapshot YAML.
func ParseStatic(data []byte) (*Static, error) {
	var raw map[string]model.Financials
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "marketdata: parse snapshot")
	}
	s := &Static{byTicker: make(map[string]model.Financials, len(raw))}
	for ticker, f := range raw {
		s.byTicker[strings.ToUpper(ticker)] = f
	}
	return s, nil
}

// Fetch implements Provider.
func (s *Static) Fetch(_ context.Context, ticker string) (model.Financials, error) {
	f, ok := s.byTicker[strings.ToUpper(ticker)]
	if !ok {
		return model.Financials{}, eris.Wrapf(ErrUnknownTicker, "%s", ticker)
	}
	return f, nil
}

// Len returns the number of tickers in the snapshot.
func (s *Static) Len() int {
	return len(s.byTicker)
}
