package world

// injectFault crashes at most one agent, chosen uniformly among the survivors,
// with probability FaultRate. It runs after the execute phase so it only
// affects later rounds.
//
// The shipped programs do not account for vanished peers; this is a stress
// mechanism, not a guarantee that they still converge.
func (w *World) injectFault(round uint64) []AgentID {
	if w.cfg.FaultRate <= 0 || len(w.agents) == 0 {
		return nil
	}
	rng := roundRand(w.cfg.Seed, round, saltFault)
	if rng.Float64() >= w.cfg.FaultRate {
		return nil
	}
	victim := w.agents[rng.Intn(len(w.agents))]
	w.RemoveAgent(victim.id)
	return []AgentID{victim.id}
}
