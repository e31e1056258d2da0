package molstream

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/2x3systems/molcanon/libcanon/catalog"
	"github.com/2x3systems/molcanon/libcanon/molgraph"
	"github.com/pkg/errors"
)

// Entry is one molecule flowing through a Stream.
type Entry struct {
	LineNum int                // 1-based source line
	Expr    string             // expression as read
	Mol     *molgraph.Molecule // nil once an error has occurred
	ID      catalog.ID         // set by AddTo
	Added   bool               // set by AddTo
	Err     error
}

// Reclaim releases the entry's molecule.
func (entry *Entry) Reclaim() {
	if entry.Mol != nil {
		entry.Mol.Reclaim()
		entry.Mol = nil
	}
}

func (entry *Entry) fail(err error) {
	entry.Err = errors.Wrapf(err, "line %d", entry.LineNum)
	entry.Reclaim()
}

// Stream is a stage in a pipeline of molecules; each stage runs in its own goroutine.
//
// Entries carrying an error pass through every stage untouched so the final consumer sees them.
type Stream struct {
	Outlet chan *Entry
}

func newStream() *Stream {
	return &Stream{
		Outlet: make(chan *Entry, 1),
	}
}

func (stream *Stream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

// ReadExprs parses one molecule expression per line of r.
// Blank lines and lines starting with '#' are skipped.
func ReadExprs(r io.Reader) *Stream {
	next := newStream()

	go func() {
		scanner := bufio.NewScanner(r)
		for lineNum := 1; scanner.Scan(); lineNum++ {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || line[0] == '#' {
				continue
			}
			entry := &Entry{
				LineNum: lineNum,
				Expr:    line,
			}
			var err error
			if entry.Mol, err = molgraph.Parse(line); err != nil {
				entry.fail(err)
			}
			next.Outlet <- entry
		}
		if err := scanner.Err(); err != nil {
			next.Outlet <- &Entry{Err: errors.Wrap(err, "reading expressions")}
		}
		next.Close()
	}()

	return next
}

// AddTo adds each molecule to target, setting ID and Added.
func (stream *Stream) AddTo(target catalog.CanonicSet) *Stream {
	next := newStream()

	go func() {
		for entry := range stream.Outlet {
			if entry.Err == nil {
				var err error
				entry.ID, entry.Added, err = target.TryAdd(entry.Mol)
				if err != nil {
					entry.fail(err)
				}
			}
			next.Outlet <- entry
		}
		next.Close()
	}()

	return next
}

// DropDupes passes only the entries that AddTo reported as added (and entries carrying an error).
func (stream *Stream) DropDupes() *Stream {
	next := newStream()

	go func() {
		for entry := range stream.Outlet {
			if entry.Err != nil || entry.Added {
				next.Outlet <- entry
			} else {
				entry.Reclaim()
			}
		}
		next.Close()
	}()

	return next
}

// Print writes "<id> <new|dup> <expr>" for each entry to out.
func (stream *Stream) Print(out io.Writer) *Stream {
	next := newStream()

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		for entry := range stream.Outlet {
			if entry.Err == nil {
				status := "dup"
				if entry.Added {
					status = "new"
				}
				fmt.Fprintf(&buf, "%d %s %s\n", entry.ID, status, entry.Expr)
				io.WriteString(out, buf.String())
				buf.Reset()
			}
			next.Outlet <- entry
		}
		next.Close()
	}()

	return next
}

// PullAll drains the stream, returning the number of entries pulled and the first error encountered.
func (stream *Stream) PullAll() (int, error) {
	count := 0
	var err error
	for entry := range stream.Outlet {
		if entry.Err != nil {
			if err == nil {
				err = entry.Err
			}
		} else {
			count++
		}
		entry.Reclaim()
	}
	return count, err
}
