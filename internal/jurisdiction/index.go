package jurisdiction

// Index resolves cleaned labels: the countryish-name table, the alpha-3
// code set and the catalog the fuzzy matcher scores against. Built once at
// startup and read-only afterwards, so concurrent readers need no locking.
type Index struct {
	names   map[string]string
	codes   map[string]struct{}
	catalog *Catalog
}

func NewIndex(cat *Catalog, names map[string]string) *Index {
	ix := &Index{names: names, codes: make(map[string]struct{}, 260), catalog: cat}
	for _, c := range cat.Codes() {
		ix.codes[c] = struct{}{}
	}
	return ix
}

// NewDefaultIndex wires the bundled catalog and name table.
func NewDefaultIndex() *Index {
	return NewIndex(DefaultCatalog(), DefaultNames())
}

// IsCode reports whether s is exactly a known alpha-3 code. No case
// folding happens here; callers upper-case first.
func (ix *Index) IsCode(s string) bool {
	_, ok := ix.codes[s]
	return ok
}

// NameToCode looks a cleaned label up in the countryish-name table.
func (ix *Index) NameToCode(name string) (string, bool) {
	c, ok := ix.names[name]
	return c, ok
}
