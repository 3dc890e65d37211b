package graph

import (
	"fmt"
	"log/slog"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/tphakala/mixcore/internal/errors"
	"github.com/tphakala/mixcore/internal/logging"
	"github.com/tphakala/mixcore/internal/observability/metrics"
)

// Reachability results are cached per builder session; any accepted edge
// flushes the cache.
const (
	pathCacheExpiration = time.Minute
	pathCacheCleanup    = 5 * time.Minute
)

// Builder creates nodes and connects them while enforcing the policies a
// valid topology needs: edges attach to legal endpoint types, every
// destination except a mixer has at most one source, formats on both ends
// must agree, and no edge may close a cycle.
//
// A Builder is not safe for concurrent use; topology construction is a
// single-threaded, configuration-time activity.
type Builder struct {
	logger  *slog.Logger
	metrics *metrics.GraphMetrics

	nodes     map[string]Node
	order     []Node
	pathCache *cache.Cache
}

// NewBuilder creates an empty Builder. graphMetrics may be nil.
func NewBuilder(graphMetrics *metrics.GraphMetrics) *Builder {
	return &Builder{
		logger:    logging.ForService("graph"),
		metrics:   graphMetrics,
		nodes:     make(map[string]Node),
		pathCache: cache.New(pathCacheExpiration, pathCacheCleanup),
	}
}

// AddProducer creates a producer node.
func (b *Builder) AddProducer(name, formatKey string) (Node, error) {
	return b.addOrdinary(name, TypeProducer, formatKey)
}

// AddConsumer creates a consumer node.
func (b *Builder) AddConsumer(name, formatKey string) (Node, error) {
	return b.addOrdinary(name, TypeConsumer, formatKey)
}

// AddMixer creates a mixer node.
func (b *Builder) AddMixer(name, formatKey string) (Node, error) {
	return b.addOrdinary(name, TypeMixer, formatKey)
}

func (b *Builder) addOrdinary(name string, typ NodeType, formatKey string) (Node, error) {
	if err := b.checkNewName(name); err != nil {
		return nil, err
	}
	n := newOrdinaryNode(name, typ, formatKey)
	b.register(n)

	b.logger.Debug("node created", "node", name, "type", typ.String())
	if b.metrics != nil {
		b.metrics.RecordNodeCreated(typ.String())
	}
	return n, nil
}

// AddMeta creates a meta node together with its child input and output
// nodes. The children are registered under their own names and are the
// only legal edge endpoints for the composite.
func (b *Builder) AddMeta(name string, inputNames, outputNames []string, formatKey string) (Node, error) {
	if len(inputNames) == 0 && len(outputNames) == 0 {
		return nil, errors.Newf("meta node %q needs at least one child", name).
			Component("graph").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := b.checkNewName(name); err != nil {
		return nil, err
	}
	for _, childName := range inputNames {
		if err := b.checkNewName(childName); err != nil {
			return nil, err
		}
	}
	for _, childName := range outputNames {
		if err := b.checkNewName(childName); err != nil {
			return nil, err
		}
	}

	m := newMetaNode(name, inputNames, outputNames, formatKey)
	b.register(m)
	for _, child := range m.ChildInputs() {
		b.register(child)
	}
	for _, child := range m.ChildOutputs() {
		b.register(child)
	}

	b.logger.Debug("meta node created",
		"node", name,
		"child_inputs", len(inputNames),
		"child_outputs", len(outputNames))
	if b.metrics != nil {
		b.metrics.RecordNodeCreated(TypeMeta.String())
	}
	return m, nil
}

func (b *Builder) checkNewName(name string) error {
	if name == "" {
		return errors.New(errors.NewStd("node name must not be empty")).
			Component("graph").
			Category(errors.CategoryValidation).
			Build()
	}
	if _, exists := b.nodes[name]; exists {
		return errors.Newf("node %q already exists", name).
			Component("graph").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func (b *Builder) register(n Node) {
	b.nodes[n.Name()] = n
	b.order = append(b.order, n)
}

// owns reports whether n is a node this builder registered.
func (b *Builder) owns(n Node) bool {
	registered, ok := b.nodes[n.Name()]
	return ok && registered.ID() == n.ID()
}

// Node returns the node registered under name.
func (b *Builder) Node(name string) (Node, bool) {
	n, ok := b.nodes[name]
	return n, ok
}

// Nodes returns all nodes in creation order. Meta node children appear
// directly after their parent.
func (b *Builder) Nodes() []Node {
	return b.order
}

// Connect adds the edge src -> dest after checking every edge policy.
// On rejection the graph is unchanged and the returned error names the
// violated policy.
func (b *Builder) Connect(src, dest Node) error {
	if src == nil || dest == nil {
		return b.reject("endpoint", "cannot connect a nil node")
	}
	if !b.owns(src) {
		return b.reject("endpoint", "source node %q does not belong to this builder", src.Name())
	}
	if !b.owns(dest) {
		return b.reject("endpoint", "destination node %q does not belong to this builder", dest.Name())
	}

	switch src.Type() {
	case TypeConsumer:
		return b.reject("endpoint", "consumer node %q cannot be an edge source", src.Name())
	case TypeMeta:
		return b.reject("endpoint", "connect from a child output of meta node %q, not the meta node itself", src.Name())
	case TypeChildInput:
		return b.reject("endpoint", "child input %q feeds its meta node and cannot be an edge source", src.Name())
	}

	switch dest.Type() {
	case TypeProducer:
		return b.reject("endpoint", "producer node %q cannot be an edge destination", dest.Name())
	case TypeMeta:
		return b.reject("endpoint", "connect to a child input of meta node %q, not the meta node itself", dest.Name())
	case TypeChildOutput:
		return b.reject("endpoint", "child output %q is fed by its meta node and cannot be an edge destination", dest.Name())
	}

	// Every destination except a mixer accepts exactly one source.
	if dest.Type() != TypeMixer && len(dest.Inputs()) > 0 {
		return b.reject("single-source", "node %q already has a source", dest.Name())
	}

	if src.FormatKey() != "" && dest.FormatKey() != "" && src.FormatKey() != dest.FormatKey() {
		return b.reject("format", "format mismatch on edge %s -> %s: %q vs %q",
			src.Name(), dest.Name(), src.FormatKey(), dest.FormatKey())
	}

	// Adding src -> dest closes a cycle exactly when dest already
	// reaches src. Self-edges fall out of the same check.
	reachable := ExistsPath(dest, src)
	if b.metrics != nil {
		b.metrics.RecordPathQuery(reachable)
	}
	if reachable {
		return b.reject("cycle", "edge %s -> %s would create a cycle", src.Name(), dest.Name())
	}

	// Mutate the registered instances; owns() guaranteed they match the
	// arguments, and registered ordinary nodes are always builder-created.
	addEdge(b.nodes[src.Name()].(*ordinaryNode), b.nodes[dest.Name()].(*ordinaryNode))
	b.pathCache.Flush()

	b.logger.Debug("edge accepted", "from", src.Name(), "to", dest.Name())
	if b.metrics != nil {
		b.metrics.RecordEdgeAccepted()
	}
	return nil
}

// ConnectByName resolves both endpoints and connects them.
func (b *Builder) ConnectByName(from, to string) error {
	src, ok := b.Node(from)
	if !ok {
		return errors.Newf("unknown edge source %q", from).
			Component("graph").
			Category(errors.CategoryNotFound).
			Build()
	}
	dest, ok := b.Node(to)
	if !ok {
		return errors.Newf("unknown edge destination %q", to).
			Component("graph").
			Category(errors.CategoryNotFound).
			Build()
	}
	return b.Connect(src, dest)
}

// ExistsPathCached answers a reachability query through the builder's
// session cache. Accepted edges invalidate the cache, so answers reflect
// the current graph.
func (b *Builder) ExistsPathCached(src, dest Node) bool {
	key := fmt.Sprintf("%d->%d", src.ID(), dest.ID())
	if v, found := b.pathCache.Get(key); found {
		if b.metrics != nil {
			b.metrics.RecordPathCacheHit()
		}
		return v.(bool)
	}

	result := ExistsPath(src, dest)
	b.pathCache.Set(key, result, cache.DefaultExpiration)
	if b.metrics != nil {
		b.metrics.RecordPathQuery(result)
	}
	return result
}

func (b *Builder) reject(reason, format string, args ...any) error {
	if b.metrics != nil {
		b.metrics.RecordEdgeRejected(reason)
	}
	b.logger.Debug("edge rejected", "reason", reason)
	return errors.Newf(format, args...).
		Component("graph").
		Category(errors.CategoryGraph).
		Context("reason", reason).
		Build()
}
