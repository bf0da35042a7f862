package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bdlm/log"
	"github.com/fsnotify/fsnotify"

	"github.com/kungfusheep/treegrid"
)

// entry is one file or directory row.
type entry struct {
	Path     string
	Name     string
	Size     int64
	Mode     string
	Modified time.Time
	Dir      bool
}

func newEntry(dir string, d fs.DirEntry) entry {
	e := entry{
		Path: filepath.Join(dir, d.Name()),
		Name: d.Name(),
		Dir:  d.IsDir(),
	}
	if info, err := d.Info(); err == nil {
		e.Size = info.Size()
		e.Mode = info.Mode().String()
		e.Modified = info.ModTime()
	}
	return e
}

// field resolves column keys for entries. Directory sizes are undefined so
// they sort after files.
func field(e entry, key string) any {
	switch key {
	case "name":
		return e.Name
	case "size":
		if e.Dir {
			return nil
		}
		return e.Size
	case "mode":
		return e.Mode
	case "modified":
		return e.Modified
	}
	return treegrid.FieldValue(e, key)
}

func entryID(e entry) string { return e.Path }

func entryText(e entry) string { return e.Name }

// listDir reads a directory's children, directories first, then by name.
func listDir(dir string) ([]entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]entry, 0, len(des))
	for _, d := range des {
		out = append(out, newEntry(dir, d))
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(es []entry) {
	slices.SortStableFunc(es, func(a, b entry) int {
		if a.Dir != b.Dir {
			if a.Dir {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// lister pages through a directory with os.File.ReadDir. Every reset bumps
// a generation; pages carry the generation they were read under so pages
// from an earlier listing can be dropped.
type lister struct {
	mu   sync.Mutex
	dir  string
	f    *os.File
	gen  int
	done bool
}

type page struct {
	gen     int
	entries []entry
	last    bool
}

func newLister(dir string) *lister {
	return &lister{dir: dir}
}

// reset starts the listing over and returns the new generation.
func (l *lister) reset() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}
	l.gen++
	l.done = false
	return l.gen
}

// next reads up to n more entries. n <= 0 reads the rest.
func (l *lister) next(n int) (page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := page{gen: l.gen}
	if l.done {
		p.last = true
		return p, nil
	}
	if l.f == nil {
		f, err := os.Open(l.dir)
		if err != nil {
			return p, fmt.Errorf("open %s: %w", l.dir, err)
		}
		l.f = f
	}

	des, err := l.f.ReadDir(n)
	switch {
	case errors.Is(err, io.EOF):
		p.last = true
	case err != nil:
		return p, fmt.Errorf("read %s: %w", l.dir, err)
	case n <= 0 || len(des) < n:
		// a short read only happens at the end of the directory
		p.last = true
	}
	if p.last {
		l.done = true
		l.f.Close()
		l.f = nil
	}

	for _, d := range des {
		p.entries = append(p.entries, newEntry(l.dir, d))
	}
	log.WithFields(log.Fields{
		"dir":     l.dir,
		"entries": len(p.entries),
		"last":    p.last,
	}).Debug("read page")
	return p, nil
}

func (l *lister) close() {
	l.reset()
}

// watcher reports changes to directories whose children are loaded.
type watcher struct {
	fs      *fsnotify.Watcher
	mu      sync.Mutex
	watched map[string]struct{}
}

func newWatcher() (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &watcher{fs: fw, watched: make(map[string]struct{})}, nil
}

// add starts watching dir. Repeated adds are ignored.
func (w *watcher) add(dir string) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[dir]; ok {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		log.WithFields(log.Fields{"dir": dir, "err": err}).Warn("watch failed")
		return
	}
	w.watched[dir] = struct{}{}
}

// run forwards the parent directory of every change to changed until the
// watcher is closed.
func (w *watcher) run(changed func(dir string)) {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			dir := filepath.Dir(ev.Name)
			log.WithFields(log.Fields{"dir": dir, "op": ev.Op.String()}).Debug("directory changed")
			changed(dir)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.WithFields(log.Fields{"err": err}).Warn("watcher error")
		}
	}
}

func (w *watcher) close() {
	if w == nil {
		return
	}
	w.fs.Close()
}
