package datasource

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/steinarvk/whizdex/lib/config"
	"github.com/steinarvk/whizdex/lib/fixtures"
	"github.com/steinarvk/whizdex/lib/recquery"
)

var fileSuffixes = []string{".jsonl", ".jsonlines"}

// FileSource reads <name>.jsonl files, one JSON object per line.
type FileSource struct {
	fsys   fs.FS
	limits config.Limits
}

func NewFileSource(fsys fs.FS, limits config.Limits) *FileSource {
	return &FileSource{fsys: fsys, limits: limits}
}

func NewDirSource(dir string, limits config.Limits) *FileSource {
	return NewFileSource(os.DirFS(dir), limits)
}

// NewFixtureSource serves the embedded WhizCart mock data.
func NewFixtureSource(limits config.Limits) *FileSource {
	return NewFileSource(fixtures.Data(), limits)
}

func (s *FileSource) open(name string) (fs.File, string, error) {
	for _, suffix := range fileSuffixes {
		fn := name + suffix
		f, err := s.fsys.Open(fn)
		if err == nil {
			return f, fn, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fn, err
		}
	}
	return nil, "", fs.ErrNotExist
}

func (s *FileSource) Records(ctx context.Context, name string) ([]recquery.Record, error) {
	f, filename, err := s.open(name)
	if err != nil {
		return nil, sourceError(name, "no data file", err)
	}
	defer f.Close()

	c := newCollector(ctx, name, s.limits)

	maxLineLength := s.limits.MaxBytesPerRecord + 1
	if maxLineLength < bufio.MaxScanTokenSize {
		maxLineLength = bufio.MaxScanTokenSize
	}

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, bufio.MaxScanTokenSize)
	scanner.Buffer(buf, maxLineLength)

	lineno := 0
	for scanner.Scan() {
		lineno++
		if lineno%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if err := c.add(fmt.Sprintf("%s:%d", filename, lineno), line); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, sourceError(name, "error reading "+filename, err)
	}

	return c.result(), nil
}
