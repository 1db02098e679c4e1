package firmware

// Classify splits inv into files referenced by any present boot slot and
// orphaned files. A file named by several slots is referenced once, and a
// name repeated in inv is classified once. Every distinct inventory file ends
// up in exactly one of the two lists.
func Classify(inv Inventory, refs BootReferences) Classification {
	inUse := refs.Names()
	seen := make(map[string]bool, len(inv))

	var c Classification
	for _, f := range inv {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true

		if _, ok := inUse[f.Name]; ok {
			c.Referenced = append(c.Referenced, f)
		} else {
			c.Orphaned = append(c.Orphaned, f)
		}
	}
	return c
}
