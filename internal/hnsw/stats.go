package hnsw

import "strconv"

// Stats returns statistics about the HNSW graph.
func (h *HNSW) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	levels := make([]LevelStats, h.maxLevel+1)
	for i := range levels {
		levels[i].Level = i
	}

	for i := range h.nodes {
		n := &h.nodes[i]
		for l := 0; l <= n.level && l < len(levels); l++ {
			levels[l].Nodes++
			levels[l].Connections += len(n.links[l])
		}
	}

	for i := range levels {
		if levels[i].Nodes > 0 {
			levels[i].AvgConnections = levels[i].Connections / levels[i].Nodes
		}
	}

	return Stats{
		Options: map[string]string{
			"Type":         "HNSW",
			"DistanceType": h.opts.DistanceType.String(),
			"Heuristic":    strconv.FormatBool(h.opts.Heuristic),
		},
		Parameters: map[string]string{
			"M":              strconv.Itoa(h.maxConnectionsPerLayer),
			"M0":             strconv.Itoa(h.maxConnectionsLayer0),
			"EFConstruction": strconv.Itoa(h.opts.EFConstruction),
			"EFSearch":       strconv.Itoa(h.efSearch),
		},
		Storage: map[string]string{
			"Nodes":      strconv.Itoa(len(h.nodes)),
			"MaxLevel":   strconv.Itoa(h.maxLevel),
			"EntryPoint": strconv.FormatUint(uint64(h.entryPoint), 10),
		},
		Levels: levels,
	}
}
