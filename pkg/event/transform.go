package event

import (
	"github.com/leapstack-labs/statify/pkg/classify"
	"github.com/leapstack-labs/statify/pkg/extract"
)

// Transform returns the events produced by cmd, in application order.
// Statements with no semantic effect produce no events.
func Transform(cmd classify.Command) []Event {
	text := cmd.Text

	switch cmd.Category {
	case classify.FileRead:
		name, ok := extract.FileArg(text)
		if !ok {
			return nil
		}
		load := LoadFile{Filename: name, Source: text}
		if s, ok := ParseSchema(text); ok {
			load.Schema = &s
		}
		return []Event{
			ResetScope{Reason: ReasonDestructiveLoad, Source: text},
			load,
		}

	case classify.FileJoin:
		files := extract.FileArgs(text)
		if len(files) == 0 {
			return nil
		}
		return []Event{JoinFiles{Filenames: files, Source: text}}

	case classify.FileSave:
		name, ok := extract.FileArg(text)
		if !ok || name == "*" {
			return nil
		}
		return []Event{SaveFile{Filename: name, Source: text}}

	case classify.Assignment, classify.Recode, classify.Conditional:
		target, ok := extract.Target(text)
		if !ok {
			return nil
		}
		var deps []string
		if !extract.IsDeclaration(text) {
			deps = extract.Without(extract.Dependencies(text), target)
		}
		return []Event{Assign{Target: target, Dependencies: deps, Source: text}}

	case classify.Aggregate:
		return transformAggregate(text)
	}

	return nil
}

func transformAggregate(text string) []Event {
	var events []Event
	breaks := extract.BreakVars(text)

	for _, t := range extract.AggregateTargets(text) {
		deps := append([]string(nil), breaks...)
		for _, a := range t.Args {
			deps = append(deps, extract.Dependencies(a)...)
		}
		events = append(events, Assign{
			Target:       t.Name,
			Dependencies: extract.Without(deps, t.Name),
			Source:       text,
		})
	}

	if name, ok := extract.FileArg(text); ok && name != "*" {
		events = append(events, SaveFile{Filename: name, Source: text})
	}
	return events
}
