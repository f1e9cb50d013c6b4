// Package instructions renders the block that teaches an agent runtime how to
// reload variables handed over as files.
//
// The block is a pure function of the ordered (name, kind) bindings: a fixed
// preamble, one loader snippet per binding and a closing directive that asks
// the agent to return through final_answer. Every storage kind in package vars
// must have a template here; New refuses to build otherwise.
package instructions
