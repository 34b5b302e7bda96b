package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvExtractionMinCellFill overrides the structured-extraction confidence threshold.
const EnvExtractionMinCellFill = "EXTRACTION_MIN_CELL_FILL"

// ExtractionConfig contains table extraction tuning.
type ExtractionConfig struct {
	// MinCellFill is the minimum ratio of non-empty cells a structured
	// extraction must produce before its tables are trusted; below this
	// the recognition fallback runs.
	MinCellFill float64 `toml:"min_cell_fill"`

	// MinRows is the minimum row count for a detected grid to count as a table.
	MinRows int `toml:"min_rows"`

	// MinColumns is the minimum column count for a detected grid to count as a table.
	MinColumns int `toml:"min_columns"`
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *ExtractionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ExtractionConfig) Merge(overlay *ExtractionConfig) {
	if overlay.MinCellFill != 0 {
		c.MinCellFill = overlay.MinCellFill
	}
	if overlay.MinRows != 0 {
		c.MinRows = overlay.MinRows
	}
	if overlay.MinColumns != 0 {
		c.MinColumns = overlay.MinColumns
	}
}

func (c *ExtractionConfig) loadDefaults() {
	if c.MinCellFill == 0 {
		c.MinCellFill = 0.3
	}
	if c.MinRows == 0 {
		c.MinRows = 2
	}
	if c.MinColumns == 0 {
		c.MinColumns = 2
	}
}

func (c *ExtractionConfig) loadEnv() {
	if v := os.Getenv(EnvExtractionMinCellFill); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinCellFill = f
		}
	}
}

func (c *ExtractionConfig) validate() error {
	if c.MinCellFill <= 0 || c.MinCellFill > 1 {
		return fmt.Errorf("min_cell_fill must be in (0, 1]")
	}
	if c.MinRows < 1 {
		return fmt.Errorf("min_rows must be positive")
	}
	if c.MinColumns < 1 {
		return fmt.Errorf("min_columns must be positive")
	}
	return nil
}
