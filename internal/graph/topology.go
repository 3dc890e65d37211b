package graph

import (
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/observability/metrics"
)

// Topology is the on-disk description of a processing graph.
//
//	nodes:
//	  - name: source
//	    kind: producer
//	    format: float32:48000:2
//	metas:
//	  - name: effects
//	    inputs: [effects.in]
//	    outputs: [effects.out]
//	    format: float32:48000:2
//	edges:
//	  - from: source
//	    to: effects.in
type Topology struct {
	Nodes []TopologyNode `yaml:"nodes,omitempty"`
	Metas []TopologyMeta `yaml:"metas,omitempty"`
	Edges []TopologyEdge `yaml:"edges,omitempty"`
}

// TopologyNode declares one ordinary node.
type TopologyNode struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Format string `yaml:"format,omitempty"`
}

// TopologyMeta declares one meta node and its children.
type TopologyMeta struct {
	Name    string   `yaml:"name"`
	Inputs  []string `yaml:"inputs,omitempty"`
	Outputs []string `yaml:"outputs,omitempty"`
	Format  string   `yaml:"format,omitempty"`
}

// TopologyEdge declares one edge between registered node names.
type TopologyEdge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadTopology reads and parses a topology file.
func LoadTopology(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("graph").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	defer f.Close()

	topo, err := ParseTopology(f)
	if err != nil {
		return nil, errors.New(err).
			Component("graph").
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Build()
	}
	return topo, nil
}

// ParseTopology parses a topology document. Unknown fields are rejected
// so typos in hand-written files fail loudly.
func ParseTopology(r io.Reader) (*Topology, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var topo Topology
	if err := dec.Decode(&topo); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.NewStd("topology document is empty")
		}
		return nil, err
	}

	if len(topo.Nodes) == 0 && len(topo.Metas) == 0 {
		return nil, errors.NewStd("topology declares no nodes")
	}
	return &topo, nil
}

// Build constructs the graph the document describes, applying every
// builder policy. graphMetrics may be nil.
func (t *Topology) Build(graphMetrics *metrics.GraphMetrics) (*Builder, error) {
	b := NewBuilder(graphMetrics)

	for _, n := range t.Nodes {
		var err error
		switch strings.ToLower(n.Kind) {
		case "producer":
			_, err = b.AddProducer(n.Name, n.Format)
		case "consumer":
			_, err = b.AddConsumer(n.Name, n.Format)
		case "mixer":
			_, err = b.AddMixer(n.Name, n.Format)
		default:
			err = errors.Newf("node %q has unknown kind %q", n.Name, n.Kind).
				Component("graph").
				Category(errors.CategoryValidation).
				Build()
		}
		if err != nil {
			return nil, err
		}
	}

	for _, m := range t.Metas {
		if _, err := b.AddMeta(m.Name, m.Inputs, m.Outputs, m.Format); err != nil {
			return nil, err
		}
	}

	for _, e := range t.Edges {
		if err := b.ConnectByName(e.From, e.To); err != nil {
			return nil, err
		}
	}

	return b, nil
}
