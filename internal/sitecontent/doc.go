// Package sitecontent defines the single JSON document that holds every
// editable piece of the homepage, along with the structural check that gates
// writes and the canonical on-disk encoding.
package sitecontent
