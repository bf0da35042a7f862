package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bdlm/log"
	"golang.org/x/term"

	"github.com/kungfusheep/treegrid"
)

const dumpWidth = 120

// dump renders the whole listing once, expanding directories up to depth
// levels with synchronous child fetches.
func dump(ctx context.Context, out io.Writer, root string, cfg *Config, depth int) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	entries, err := listDir(root)
	if err != nil {
		return err
	}

	g := treegrid.NewGrid(entries, treegrid.Config[entry, string]{
		ID:          entryID,
		HasChildren: func(e entry) bool { return e.Dir },
		Children: func(req treegrid.ChildRequest[entry, string]) ([]entry, bool) {
			kids, err := listDir(req.ID)
			if err != nil {
				log.WithFields(log.Fields{"dir": req.ID, "err": err}).Warn("skipping directory")
				return nil, true
			}
			return kids, true
		},
		Field: field,
	}, opts)

	if s := cfg.InitialSort(); s.Key != "" {
		g.Tree().Sort(s.Key, s.Direction)
		g.SetSort(s)
	}

	if err := expandTo(ctx, g.Tree(), depth); err != nil {
		return err
	}
	g.SetSize(termWidth(out), g.RowCount()+1)

	_, err = fmt.Fprintln(out, renderGrid(g, false))
	return err
}

// expandTo expands every expandable row above depth. Rows inserted by an
// expansion are visited by the same pass.
func expandTo(ctx context.Context, t *treegrid.Tree[entry, string], depth int) error {
	t.BeginUpdate()
	defer t.EndUpdate()
	for i := 0; i < t.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if info := t.ViewInfo(i); info.Expandable && !info.Expanded && info.Level < depth {
			t.SetExpandedAt(i, treegrid.Expand)
		}
	}
	return nil
}

func termWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return dumpWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return dumpWidth
	}
	return w
}
