package firmware

// Kind tells a system image apart from a patch package.
type Kind int

const (
	KindSystem Kind = iota + 1 // SPC###.cc
	KindPatch                  // SPH###.PAT
)

func (k Kind) String() string {
	switch k {
	case KindSystem:
		return "system"
	case KindPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// Filename is a firmware or patch file name recognized by the filename grammar.
// Two Filenames are the same file when their Name fields are equal.
type Filename struct {
	Name    string // canonical form, exactly as matched
	Family  string // product line and model, e.g. CE5855EI
	Version string // e.g. V200R019C10
	Build   string // e.g. SPC800 or SPH015
	Kind    Kind
}

func (f Filename) String() string { return f.Name }

// Reference is one boot slot. A zero Reference is absent.
type Reference struct {
	File    Filename
	Present bool
}

// Absent reports whether the device has nothing configured for the slot.
func (r Reference) Absent() bool { return !r.Present }

func (r Reference) String() string {
	if !r.Present {
		return "NONE"
	}
	return r.File.Name
}

func present(f Filename) Reference { return Reference{File: f, Present: true} }

// BootReferences holds the four boot slots of the primary board.
// The system slots are always present after a successful parse.
type BootReferences struct {
	CurrentSystem Reference
	NextSystem    Reference
	CurrentPatch  Reference
	NextPatch     Reference
}

// Slots returns the four slots in report order.
func (b BootReferences) Slots() []Reference {
	return []Reference{b.CurrentSystem, b.NextSystem, b.CurrentPatch, b.NextPatch}
}

// Names returns the set of file names referenced by any present slot.
func (b BootReferences) Names() map[string]struct{} {
	set := make(map[string]struct{}, 4)
	for _, r := range b.Slots() {
		if r.Present {
			set[r.File.Name] = struct{}{}
		}
	}
	return set
}

// Inventory is the deduplicated list of firmware files found on device storage,
// in order of first appearance.
type Inventory []Filename

// Names returns the file names in inventory order.
func (inv Inventory) Names() []string {
	names := make([]string, 0, len(inv))
	for _, f := range inv {
		names = append(names, f.Name)
	}
	return names
}

// Classification partitions an Inventory into files referenced by a boot slot
// and orphaned files. Both keep inventory order.
type Classification struct {
	Referenced []Filename
	Orphaned   []Filename
}
