// Package repository finds legacy syntax files in a source tree and compiles
// them in parallel, one private pipeline run per file.
package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"

	"github.com/leapstack-labs/statify/internal/compiler"
)

// ErrNotFound is returned when a root or file does not exist.
var ErrNotFound = errors.New("not found")

// DefaultExtensions are the source file extensions scanned by default.
var DefaultExtensions = []string{".sps", ".spss"}

// File is one source file of a repository.
type File struct {
	Path     string // slash-separated, relative to the root
	Text     string
	Encoding string // utf-8 or latin-1
	Inputs   []string
	Outputs  []string
}

// Repository is a scanned source tree.
type Repository struct {
	Root  string
	Files []File

	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Scan reads every file under root whose extension is in extensions
// (case-insensitive). Files are ordered by path.
func Scan(root string, extensions []string, opts ...Option) (*Repository, error) {
	r := &Repository{Root: root, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !hasExtension(d.Name(), extensions) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := ReadFile(path)
		if err != nil {
			return err
		}
		f.Path = filepath.ToSlash(rel)
		f.Inputs, f.Outputs = compiler.Inspect(f.Text)
		r.logger.Debug("scanned source file", "path", f.Path, "encoding", f.Encoding)
		r.Files = append(r.Files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	slices.SortFunc(r.Files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	return r, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.ContainsFunc(extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// ReadFile reads path as UTF-8, falling back to latin-1 when the content is
// not valid UTF-8. A leading UTF-8 byte order mark is dropped.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return File{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return File{Path: filepath.ToSlash(path), Text: text, Encoding: enc}, nil
}

// Decode returns data as a string and the encoding it was read with.
func Decode(data []byte) (text, encoding string, err error) {
	data = trimBOM(data)
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", err
	}
	return string(decoded), "latin-1", nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// Compiled is the compilation of one file.
type Compiled struct {
	File   File
	Result *compiler.Result
}

// CompileAll compiles every file with at most workers concurrent runs.
// Results keep the order of r.Files. Cancelling ctx stops scheduling further
// files.
func (r *Repository) CompileAll(ctx context.Context, p *compiler.Pipeline, workers int) ([]Compiled, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]Compiled, len(r.Files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range r.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := p.Compile(f.Text)
			r.logger.Info("compiled file", "path", f.Path, "versions", res.Engine.Len(), "dead", len(res.Dead))
			out[i] = Compiled{File: f, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compilation cancelled: %w", err)
	}
	return out, nil
}

// Edge is a file written by one script and read by another.
type Edge struct {
	Producer string
	Consumer string
	File     string
}

// Dependencies returns the file-level edges between scripts, ordered by
// producer, consumer and file. Filenames compare by base name, ignoring case.
func (r *Repository) Dependencies() []Edge {
	var edges []Edge
	for _, prod := range r.Files {
		for _, out := range prod.Outputs {
			for _, cons := range r.Files {
				if cons.Path == prod.Path {
					continue
				}
				for _, in := range cons.Inputs {
					if sameFile(in, out) {
						edges = append(edges, Edge{Producer: prod.Path, Consumer: cons.Path, File: out})
					}
				}
			}
		}
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := strings.Compare(a.Producer, b.Producer); c != 0 {
			return c
		}
		if c := strings.Compare(a.Consumer, b.Consumer); c != 0 {
			return c
		}
		return strings.Compare(a.File, b.File)
	})
	return slices.Compact(edges)
}

func sameFile(a, b string) bool {
	base := func(s string) string {
		return filepath.Base(strings.ReplaceAll(s, `\`, "/"))
	}
	return strings.EqualFold(base(a), base(b))
}
