package feed

// Dedup keeps the first item seen for every link, preserving input order.
func Dedup(items []Item) ([]Item, int) {
	seen := make(map[string]struct{}, len(items))
	unique := make([]Item, 0, len(items))

	for _, item := range items {
		if _, ok := seen[item.Link]; ok {
			continue
		}
		seen[item.Link] = struct{}{}
		unique = append(unique, item)
	}

	return unique, len(items) - len(unique)
}
