package lattice

import (
	"github.com/cfiminer/miner/pkg/model"
	"github.com/cfiminer/miner/pkg/writer"
)

// JSONWriter writes a lattice graph as JSON.
type JSONWriter = writer.JSONWriter[*model.LatticeGraph]

// NewJSONWriter creates a compact-output JSON writer for lattice graphs.
func NewJSONWriter() *JSONWriter {
	return writer.NewJSONWriter[*model.LatticeGraph]()
}

// NewPrettyJSONWriter creates a pretty-printing JSON writer for lattice graphs.
func NewPrettyJSONWriter() *JSONWriter {
	return writer.NewPrettyJSONWriter[*model.LatticeGraph]()
}

// GzipWriter writes a lattice graph as gzipped JSON.
type GzipWriter = writer.GzipWriter[*model.LatticeGraph]

// NewGzipWriter creates a gzip writer with default compression for lattice graphs.
func NewGzipWriter() *GzipWriter {
	return writer.NewGzipWriter[*model.LatticeGraph]()
}
