// Package templates clusters short strings into structural "templates" —
// the same idea as log-template mining: numbers, hex blobs, UUIDs and IPv4
// addresses are folded into placeholders so that structurally similar rows
// (e.g. "GET /users/42" and "GET /users/17") land in the same cluster. The
// OnPair trainer uses cluster membership to draw a stratified training
// sample that covers every distinct shape in the corpus, not just the most
// frequent one.
package templates

import "github.com/jaeyo/go-drain3"

// Miner assigns a cluster key to each line it sees by delegating to a drain3
// engine whose MaxClusters setting is maxClusters; Miner itself does not
// count clusters or route lines into an overflow cluster.
type Miner struct {
	drain       *drain3.Drain
	maxClusters int
	seen        int
}

// NewMiner creates a miner capped at maxClusters distinct templates.
// maxClusters<=0 means unbounded (subject to the drain3 engine's own
// defaults).
func NewMiner(maxClusters int) *Miner {
	cfg := drain3.DefaultConfig()
	if maxClusters > 0 {
		cfg.MaxClusters = maxClusters
	}
	return &Miner{
		drain:       drain3.New(cfg),
		maxClusters: maxClusters,
	}
}

// Key returns the template string of the cluster the drain3 engine assigns
// to line, or "" when the engine returns no cluster.
func (m *Miner) Key(line []byte) string {
	cluster := m.drain.AddLogMessage(string(line))
	if cluster == nil {
		return ""
	}
	return cluster.TemplateString()
}
