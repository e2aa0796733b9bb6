// Package event turns classified statements into semantic events.
package event

import (
	"github.com/leapstack-labs/statify/pkg/ssa"
)

// Event is a semantic effect of one statement.
type Event interface {
	// Statement returns the source text that produced the event.
	Statement() string
	isEvent()
}

// Assign writes Target from the raw dependency names.
type Assign struct {
	Target       string
	Dependencies []string
	Source       string
}

// LoadFile replaces the working dataset with the contents of Filename.
// Schema is set when the statement declares its columns.
type LoadFile struct {
	Filename string
	Schema   *ssa.InputSchema
	Source   string
}

// JoinFiles merges external files into the working dataset. Join keys stay
// in Source and are read back by code generation.
type JoinFiles struct {
	Filenames []string
	Source    string
}

// SaveFile writes the working dataset to Filename.
type SaveFile struct {
	Filename string
	Source   string
}

// ResetScope ends the active phase.
type ResetScope struct {
	Reason string
	Source string
}

func (e Assign) Statement() string     { return e.Source }
func (e LoadFile) Statement() string   { return e.Source }
func (e JoinFiles) Statement() string  { return e.Source }
func (e SaveFile) Statement() string   { return e.Source }
func (e ResetScope) Statement() string { return e.Source }

func (Assign) isEvent()     {}
func (LoadFile) isEvent()   {}
func (JoinFiles) isEvent()  {}
func (SaveFile) isEvent()   {}
func (ResetScope) isEvent() {}

// ReasonDestructiveLoad is the reset reason for a load statement.
const ReasonDestructiveLoad = "Destructive Load"

// Apply feeds ev into the engine.
func Apply(eng *ssa.Engine, ev Event) {
	switch e := ev.(type) {
	case ResetScope:
		eng.ResetScope()
	case LoadFile:
		eng.RegisterInputFile(e.Filename)
		if e.Schema != nil {
			eng.RegisterInput(*e.Schema)
		}
	case JoinFiles:
		eng.RegisterJoin(e.Source, e.Filenames)
	case SaveFile:
		eng.RegisterOutputFile(e.Filename)
	case Assign:
		eng.RegisterAssignment(e.Target, e.Source, e.Dependencies)
	}
}
