// Package loader populates graph builders from the edge list and adjacency
// list formats commonly used to distribute graph datasets.
package loader

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/panyawen/PowerGraph/loader Graph

// Graph is implemented by graph builders that the loader can populate.
// Vertices are registered exactly once, before any edge that refers to them.
type Graph interface {
	AddVertex(id int64)
	AddEdge(src, dst int64) error
}

// Format describes the on-disk layout of a graph file.
type Format string

const (
	// FormatTSV files contain one "src dst" pair per line.
	FormatTSV Format = "tsv"

	// FormatSNAP files follow the same layout as tsv files but may also
	// contain comment lines starting with a '#' character.
	FormatSNAP Format = "snap"

	// FormatAdjacency files contain one "src numNeighbours dst1 dst2 ..."
	// record per line.
	FormatAdjacency Format = "adj"
)

// ErrUnsupportedFormat is returned when attempting to load a graph file whose
// format is not known to the loader.
var ErrUnsupportedFormat = xerrors.New("unsupported graph format")

// LoadFile populates g with the contents of the graph file at path. Files
// with a ".gz" suffix are transparently decompressed.
func LoadFile(g Graph, path string, format Format) error {
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("load graph: %w", err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return xerrors.Errorf("load graph: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	return Load(g, r, format)
}

// Load populates g with the graph data read from r.
func Load(g Graph, r io.Reader, format Format) error {
	switch format {
	case FormatTSV:
		return loadEdgeList(g, r, false)
	case FormatSNAP:
		return loadEdgeList(g, r, true)
	case FormatAdjacency:
		return loadAdjacency(g, r)
	default:
		return xerrors.Errorf("load graph with format %q: %w", format, ErrUnsupportedFormat)
	}
}

func loadEdgeList(g Graph, r io.Reader, skipComments bool) error {
	var (
		seen    = make(map[int64]struct{})
		scanner = bufio.NewScanner(r)
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || (skipComments && strings.HasPrefix(line, "#")) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return xerrors.Errorf("line %d: expected 2 fields; got %d", lineNum, len(fields))
		}
		src, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return xerrors.Errorf("line %d: invalid source vertex ID %q", lineNum, fields[0])
		}
		dst, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return xerrors.Errorf("line %d: invalid target vertex ID %q", lineNum, fields[1])
		}

		addVertex(g, seen, src)
		addVertex(g, seen, dst)
		if err := g.AddEdge(src, dst); err != nil {
			return xerrors.Errorf("line %d: %w", lineNum, err)
		}
	}
	return scanner.Err()
}

func loadAdjacency(g Graph, r io.Reader) error {
	var (
		seen    = make(map[int64]struct{})
		scanner = bufio.NewScanner(r)
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return xerrors.Errorf("line %d: expected a vertex ID followed by a neighbour count; got %d fields", lineNum, len(fields))
		}
		src, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return xerrors.Errorf("line %d: invalid source vertex ID %q", lineNum, fields[0])
		}
		numNeighbours, err := strconv.Atoi(fields[1])
		if err != nil {
			return xerrors.Errorf("line %d: invalid neighbour count %q", lineNum, fields[1])
		}
		if len(fields)-2 != numNeighbours {
			return xerrors.Errorf("line %d: expected %d neighbours; got %d", lineNum, numNeighbours, len(fields)-2)
		}

		addVertex(g, seen, src)
		for _, field := range fields[2:] {
			dst, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return xerrors.Errorf("line %d: invalid target vertex ID %q", lineNum, field)
			}
			addVertex(g, seen, dst)
			if err := g.AddEdge(src, dst); err != nil {
				return xerrors.Errorf("line %d: %w", lineNum, err)
			}
		}
	}
	return scanner.Err()
}

func addVertex(g Graph, seen map[int64]struct{}, id int64) {
	if _, exists := seen[id]; exists {
		return
	}
	seen[id] = struct{}{}
	g.AddVertex(id)
}
