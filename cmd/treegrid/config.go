package main

import (
	_ "embed"
	"fmt"

	"github.com/bdlm/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/kungfusheep/treegrid"
)

//go:embed default.hcl
var defaultConfig []byte

// Config is the layout file.
type Config struct {
	ExpanderColumn  int            `hcl:"expander_column,optional"`
	ExpanderIndent  int            `hcl:"expander_indent,optional"`
	DisableExpander bool           `hcl:"disable_expander,optional"`
	MaxVisibleRows  int            `hcl:"max_visible_rows,optional"`
	PageSize        int            `hcl:"page_size,optional"`
	EmptyText       string         `hcl:"empty_text,optional"`
	Sort            string         `hcl:"sort,optional"`
	Columns         []ColumnConfig `hcl:"column,block"`
}

// ColumnConfig is one column block.
type ColumnConfig struct {
	Key      string  `hcl:"key,label"`
	Label    string  `hcl:"label,optional"`
	Star     float64 `hcl:"star,optional"`
	Width    int     `hcl:"width,optional"`
	MinWidth int     `hcl:"min_width,optional"`
	MaxWidth int     `hcl:"max_width,optional"`
	Format   string  `hcl:"format,optional"`
	Align    string  `hcl:"align,optional"`
	NoSort   bool    `hcl:"no_sort,optional"`
	NoResize bool    `hcl:"no_resize,optional"`
}

// LoadConfig decodes the layout at path, or the built-in one when path is
// empty.
func LoadConfig(path string) (*Config, error) {
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if path == "" {
		path = "default.hcl"
		file, diags = parser.ParseHCL(defaultConfig, path)
	} else {
		file, diags = parser.ParseHCLFile(path)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %s", path, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %s", path, diags.Error())
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("config %s: no columns", path)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}

	log.WithFields(log.Fields{"path": path, "columns": len(cfg.Columns)}).Debug("config loaded")
	return &cfg, nil
}

// Options builds grid options from the config.
func (c *Config) Options() (treegrid.Options, error) {
	opts := treegrid.Options{
		ExpanderColumn:  c.ExpanderColumn,
		ExpanderIndent:  c.ExpanderIndent,
		DisableExpander: c.DisableExpander,
		MaxVisibleRows:  c.MaxVisibleRows,
		EmptyText:       c.EmptyText,
	}
	if c.ExpanderColumn < 0 || c.ExpanderColumn >= len(c.Columns) {
		return opts, fmt.Errorf("expander_column %d out of range", c.ExpanderColumn)
	}

	for _, cc := range c.Columns {
		col, err := cc.column()
		if err != nil {
			return opts, fmt.Errorf("column %q: %w", cc.Key, err)
		}
		opts.Columns = append(opts.Columns, col)
	}
	return opts, nil
}

func (cc ColumnConfig) column() (treegrid.Column, error) {
	col := treegrid.Col(cc.Key).
		Min(cc.MinWidth).
		Max(cc.MaxWidth)
	if cc.Label != "" {
		col = col.Label(cc.Label)
	}
	if cc.Star > 0 {
		col = col.Weight(cc.Star)
	} else if cc.Width > 0 {
		col = col.Fixed(cc.Width)
	}
	if cc.NoSort {
		col = col.NoSort()
	}
	if cc.NoResize {
		col = col.NoResize()
	}

	format, err := treegrid.FormatterByName(cc.Format)
	if err != nil {
		return col, err
	}
	if format != nil {
		col = col.Format(format)
	}

	switch cc.Align {
	case "", "left":
	case "right":
		col = col.Aligned(treegrid.AlignRight)
	case "center":
		col = col.Aligned(treegrid.AlignCenter)
	default:
		return col, fmt.Errorf("unknown align %q", cc.Align)
	}
	return col, nil
}

// InitialSort is the packed sort the grid starts with.
func (c *Config) InitialSort() treegrid.Sort {
	return treegrid.ParseSort(c.Sort)
}
