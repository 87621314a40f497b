package search

type chunkKey struct {
	content string
	page    int
}

// Dedup keeps the first chunk seen for each (content, page) pair.
func Dedup(chunks []Chunk) []Chunk {
	seen := make(map[chunkKey]bool, len(chunks))
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		key := chunkKey{content: c.Content, page: c.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
