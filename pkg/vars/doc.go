// Package vars classifies Go values into storage kinds and persists them as
// temporary files an agent runtime can reload.
//
// Invariants:
// - Classification is total: every value maps to exactly one Kind.
// - Every Kind has exactly one encoder; a failed encode never leaves a file behind.
// - A Store never keeps a file open after Put returns.
//
// Usage:
//
//	store, _ := vars.NewStore("", logger)
//	kind, _ := vars.Classify(value)
//	path, err := store.Put("numbers", value, kind)
//	defer store.Remove(path)
package vars
