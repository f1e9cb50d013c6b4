package vars

// Kind identifies how a value is serialized to disk.
type Kind string

const (
	// KindText holds scalars written in their canonical string form
	KindText Kind = "text"
	// KindStructured holds sequences and maps written as indented JSON
	KindStructured Kind = "structured"
	// KindArray holds numeric matrices written in NumPy .npy format
	KindArray Kind = "numeric-array"
	// KindTable holds dataframes written as Parquet without a row index
	KindTable Kind = "table"
)

var suffixes = map[Kind]string{
	KindText:       ".txt",
	KindStructured: ".json",
	KindArray:      ".npy",
	KindTable:      ".parquet",
}

// Kinds returns every storage kind in a fixed order.
func Kinds() []Kind {
	return []Kind{KindText, KindStructured, KindArray, KindTable}
}

// Suffix returns the file suffix for the kind, or "" for an unknown kind.
func (k Kind) Suffix() string {
	return suffixes[k]
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := suffixes[k]
	return ok
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a tag such as "table" into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", &UnknownKindError{Kind: s}
	}
	return k, nil
}
