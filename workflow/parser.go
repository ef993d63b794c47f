package workflow

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Record is one flat source record. Reserved keys (id, kind, next, trueNext,
// falseNext) describe graph structure; every other key becomes a node
// property verbatim.
type Record map[string]string

// Reserved record keys.
const (
	FieldID        = "id"
	FieldKind      = "kind"
	FieldNext      = "next"
	FieldTrueNext  = "trueNext"
	FieldFalseNext = "falseNext"
)

// EndTerminator is the structural terminator value for next/trueNext/
// falseNext: it means "no outgoing edge" rather than a node reference.
const EndTerminator = "end"

var reservedFields = map[string]struct{}{
	FieldID: {}, FieldKind: {}, FieldNext: {}, FieldTrueNext: {}, FieldFalseNext: {},
}

// parsedRecord pairs a surviving node with the structural fields of the
// record it came from, in surviving source order.
type parsedRecord struct {
	node      *Node
	next      string
	trueNext  string
	falseNext string
	hasFalse  bool
}

// Parse builds a workflow graph from an ordered list of flat records.
//
// Rules, in source order: a record missing an id gets the positional
// placeholder node-{index+1}; duplicate ids get a numeric suffix (_2, _3,
// ...) in encounter order; a record whose kind is outside the closed
// vocabulary is dropped silently; non-reserved fields become properties,
// except fields whose trimmed value is empty. Branch and loop kinds require
// trueNext; their false edge defaults to the next surviving record when
// falseNext is absent. Other kinds wire next the same way. The value "end"
// terminates instead of referencing a node.
//
// An explicit next edge may only point backwards (at or before its source
// in surviving order) when the target is a loop node. Conditional edges are
// not subject to this restriction; whether that gap is intentional is
// undecided, so the narrow rule is kept as observed.
func Parse(records []Record) (*Workflow, error) {
	return ParseWithLogger(records, zap.NewNop())
}

// ParseWithLogger is Parse with a logger for dropped-record diagnostics.
func ParseWithLogger(records []Record, logger *zap.Logger) (*Workflow, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "parser"))

	if len(records) == 0 {
		return nil, NewError(ErrParseNoNodes, "no nodes")
	}

	parsed := make([]*parsedRecord, 0, len(records))
	used := make(map[string]struct{}, len(records))

	for i, rec := range records {
		kind := NodeKind(strings.TrimSpace(rec[FieldKind]))
		if !KnownKind(kind) {
			logger.Debug("dropping record with unknown kind",
				zap.Int("index", i),
				zap.String("kind", string(kind)),
			)
			continue
		}

		id := strings.TrimSpace(rec[FieldID])
		if id == "" {
			id = fmt.Sprintf("node-%d", i+1)
		}
		id = uniqueID(id, used)
		used[id] = struct{}{}

		props := make(map[string]string)
		for key, value := range rec {
			if _, reserved := reservedFields[key]; reserved {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			props[key] = value
		}

		_, hasFalse := rec[FieldFalseNext]
		parsed = append(parsed, &parsedRecord{
			node:      &Node{ID: id, Kind: kind, Properties: props},
			next:      strings.TrimSpace(rec[FieldNext]),
			trueNext:  strings.TrimSpace(rec[FieldTrueNext]),
			falseNext: strings.TrimSpace(rec[FieldFalseNext]),
			hasFalse:  hasFalse && strings.TrimSpace(rec[FieldFalseNext]) != "",
		})
	}

	if len(parsed) == 0 {
		return nil, NewError(ErrParseNoNodes, "no nodes")
	}

	wf := NewWorkflow()
	position := make(map[string]int, len(parsed))
	for i, pr := range parsed {
		wf.AddNode(pr.node)
		position[pr.node.ID] = i
	}
	wf.SetStart(parsed[0].node.ID)

	for i, pr := range parsed {
		if pr.node.Kind.Conditional() {
			if err := wireConditional(wf, parsed, i, pr); err != nil {
				return nil, err
			}
			continue
		}
		if err := wireSequential(wf, parsed, position, i, pr); err != nil {
			return nil, err
		}
	}

	logger.Debug("parsed workflow",
		zap.Int("nodes", wf.Len()),
		zap.Int("edges", len(wf.edges)),
		zap.String("start", wf.Start()),
	)
	return wf, nil
}

// uniqueID resolves duplicate ids deterministically by appending _2, _3, ...
// in encounter order.
func uniqueID(id string, used map[string]struct{}) string {
	if _, taken := used[id]; !taken {
		return id
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", id, n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// wireConditional wires the false and true edges of a branch or loop record.
// The false edge is added first so traversals that follow edges in discovery
// order walk the fallthrough chain before the jump targets; the serializer
// relies on that to emit records in a source-shaped order.
func wireConditional(wf *Workflow, parsed []*parsedRecord, i int, pr *parsedRecord) error {
	id := pr.node.ID

	if pr.trueNext == "" {
		return NewError(ErrParseMissingTrueTarget,
			"%s node %q requires trueNext", pr.node.Kind, id)
	}
	if pr.trueNext != EndTerminator {
		if _, ok := wf.Node(pr.trueNext); !ok {
			return NewError(ErrParseUnknownReference,
				"node %q trueNext references unknown node %q", id, pr.trueNext)
		}
	}

	switch {
	case pr.hasFalse && pr.falseNext != EndTerminator:
		if _, ok := wf.Node(pr.falseNext); !ok {
			return NewError(ErrParseUnknownReference,
				"node %q falseNext references unknown node %q", id, pr.falseNext)
		}
		wf.AddEdge(id, pr.falseNext, LabelFalse)
	case !pr.hasFalse:
		// Implicit false edge: fall through to the next surviving record.
		if target, ok := fallthroughTarget(parsed, i); ok && target != id {
			wf.AddEdge(id, target, LabelFalse)
		}
	}

	if pr.trueNext != EndTerminator {
		wf.AddEdge(id, pr.trueNext, LabelTrue)
	}
	return nil
}

// wireSequential wires the single next edge of a non-conditional record.
func wireSequential(wf *Workflow, parsed []*parsedRecord, position map[string]int, i int, pr *parsedRecord) error {
	id := pr.node.ID

	if pr.next != "" {
		if pr.next == EndTerminator {
			return nil
		}
		target, ok := wf.Node(pr.next)
		if !ok {
			return NewError(ErrParseUnknownReference,
				"node %q next references unknown node %q", id, pr.next)
		}
		// A back-reference is only legal when it targets a loop node,
		// which is how loop bodies return to their loop head.
		if position[pr.next] <= i && target.Kind != KindLoop {
			return NewError(ErrParseIllegalBackReference,
				"node %q next references earlier node %q of kind %s; only loop nodes may be back-referenced",
				id, pr.next, target.Kind)
		}
		wf.AddEdge(id, pr.next, LabelNone)
		return nil
	}

	if target, ok := fallthroughTarget(parsed, i); ok && target != id {
		wf.AddEdge(id, target, LabelNone)
	}
	return nil
}

// fallthroughTarget returns the id of the surviving record after index i.
func fallthroughTarget(parsed []*parsedRecord, i int) (string, bool) {
	if i+1 >= len(parsed) {
		return "", false
	}
	return parsed[i+1].node.ID, true
}
