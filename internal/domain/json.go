package domain

import (
	"encoding/json"

	"github.com/locvowork/sheetlens/internal/cell"
)

func (c Chart) MarshalJSON() ([]byte, error) { return json.Marshal(c.config) }

func (c *Chart) UnmarshalJSON(data []byte) error {
	var cfg ChartConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	*c = ChartFromConfig(cfg)
	return nil
}

func (c CardRecap) MarshalJSON() ([]byte, error) { return json.Marshal(c.config) }

func (c *CardRecap) UnmarshalJSON(data []byte) error {
	var cfg CardRecapConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	*c = CardRecapFromConfig(cfg)
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) { return json.Marshal(s.config) }

func (s *Section) UnmarshalJSON(data []byte) error {
	var cfg SectionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	*s = SectionFromConfig(cfg)
	return nil
}

func (s Sheet) MarshalJSON() ([]byte, error) { return json.Marshal(s.config) }

// UnmarshalJSON decodes a sheet and points the section cells back at the
// raw matrix, so edits written to the raw cells show in every section again.
func (s *Sheet) UnmarshalJSON(data []byte) error {
	var cfg SheetConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	for i := range cfg.Sections {
		relinkSection(&cfg.Sections[i], cfg.RawData)
	}
	*s = SheetFromConfig(cfg)
	return nil
}

func relinkSection(sc *SectionConfig, raw DataMatrix) {
	sc.Title = relinkCell(sc.Title, raw)
	sc.Header = relinkRow(sc.Header, raw)
	for i, r := range sc.Data {
		sc.Data[i] = relinkRow(r, raw)
	}
}

func relinkRow(r Row, raw DataMatrix) Row {
	if r.Index < 0 || r.Index >= len(raw) {
		return r
	}
	live := raw[r.Index]
	if len(live.Cells) != len(r.Cells) {
		return r
	}
	return live
}

func relinkCell(c *cell.Cell, raw DataMatrix) *cell.Cell {
	if c == nil {
		return nil
	}
	if live := raw.At(c.Row, c.Col); live != nil {
		return live
	}
	return c
}
