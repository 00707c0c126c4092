package config

// Playable filters a discovered catalog down to engines offered for
// normal play, excluding those flagged usageNotes.notForPlay (e.g. tsume
// solvers). Such engines remain addressable by ID — Playable only
// affects what's offered in a caller-facing picker list.
func Playable(all []EngineDescriptor) []EngineDescriptor {
	var out []EngineDescriptor
	for _, d := range all {
		if !d.UsageNotes.NotForPlay {
			out = append(out, d)
		}
	}
	return out
}

// Find returns the descriptor with the given ID, if present.
func Find(all []EngineDescriptor, id string) (EngineDescriptor, bool) {
	for _, d := range all {
		if d.ID == id {
			return d, true
		}
	}
	return EngineDescriptor{}, false
}
