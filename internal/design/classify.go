package design

// Mode decides how a graph goes through the pipeline.
type Mode string

const (
	// ModeStandard processes the whole document as a single unit.
	ModeStandard Mode = "STANDARD"
	// ModeChunked splits the document into per-screen chunks first.
	ModeChunked Mode = "CHUNKED"
)

// DefaultNodeThreshold is the node count at which a document stops
// fitting in one generation call.
const DefaultNodeThreshold = 10000

// Classify routes a graph by total node count. Pure; no side effects.
// Counts below threshold stay STANDARD, threshold and above go CHUNKED.
func Classify(g *Graph, threshold int) Mode {
	if threshold <= 0 {
		threshold = DefaultNodeThreshold
	}
	if g.NodeCount() >= threshold {
		return ModeChunked
	}
	return ModeStandard
}
