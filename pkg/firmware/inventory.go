package firmware

// ParseInventory extracts the firmware files listed in the output of a storage
// directory command. Only the file name matters, so the whole text is scanned
// rather than a single column. Duplicates are dropped, first occurrence wins.
// An empty Inventory is not an error.
func ParseInventory(report string) Inventory {
	seen := make(map[string]bool)
	var inv Inventory
	for _, f := range FindAll(report) {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		inv = append(inv, f)
	}
	return inv
}
