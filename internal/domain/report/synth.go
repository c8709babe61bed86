package report

import (
	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/platform/apperr"
)

// buildResults lays out the result tree for tests in bill order. defs holds
// every resolved test, group members included. Unresolved ids are skipped.
// A group with at least one resolved member becomes a group entry with one
// leaf per member in the group's stored order; anything else is a leaf.
func buildResults(testIDs []uuid.UUID, defs map[uuid.UUID]*catalog.TestDefinition) []ResultEntry {
	out := make([]ResultEntry, 0, len(testIDs))
	for _, id := range testIDs {
		def, ok := defs[id]
		if !ok {
			continue
		}
		entry := leafEntry(def)
		if def.IsGroup() {
			for _, childID := range def.SubTests {
				if child, ok := defs[childID]; ok {
					entry.SubResults = append(entry.SubResults, leafEntry(child))
				}
			}
		}
		out = append(out, entry)
	}
	return out
}

func leafEntry(def *catalog.TestDefinition) ResultEntry {
	return ResultEntry{
		TestID:         def.ID,
		TestName:       def.Name,
		Kind:           def.Kind,
		Status:         ResultPending,
		Unit:           def.Unit,
		ReferenceRange: catalog.FormatReferenceRanges(def.ReferenceRanges),
	}
}

// memberIDs collects the members of every resolved group.
func memberIDs(defs map[uuid.UUID]*catalog.TestDefinition, testIDs []uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	for _, id := range testIDs {
		if def, ok := defs[id]; ok && def.IsGroup() {
			for _, child := range def.SubTests {
				if _, have := defs[child]; !have {
					ids = append(ids, child)
				}
			}
		}
	}
	return ids
}

// replaceResults swaps in the caller's full result tree. The tree shape is
// fixed at synthesis, so incoming must list the same tests in the same order.
// Status, value and remarks come from incoming; names, units and ranges keep
// their synthesized values.
func replaceResults(stored, incoming []ResultEntry) ([]ResultEntry, error) {
	if len(incoming) != len(stored) {
		return nil, apperr.Validation("results must list %d entries, got %d", len(stored), len(incoming))
	}
	out := make([]ResultEntry, len(stored))
	for i := range stored {
		entry, err := replaceEntry(stored[i], incoming[i], "results")
		if err != nil {
			return nil, err
		}
		if len(incoming[i].SubResults) != len(stored[i].SubResults) {
			return nil, apperr.Validation("results[%d] must list %d sub results, got %d",
				i, len(stored[i].SubResults), len(incoming[i].SubResults))
		}
		entry.SubResults = nil
		for j := range stored[i].SubResults {
			sub, err := replaceEntry(stored[i].SubResults[j], incoming[i].SubResults[j], "subResults")
			if err != nil {
				return nil, err
			}
			entry.SubResults = append(entry.SubResults, sub)
		}
		out[i] = entry
	}
	return out, nil
}

func replaceEntry(stored, in ResultEntry, field string) (ResultEntry, error) {
	if in.TestID != stored.TestID {
		return ResultEntry{}, apperr.Validation("%s: expected test %s, got %s", field, stored.TestID, in.TestID)
	}
	switch in.Status {
	case "":
		in.Status = stored.Status
	case ResultPending, ResultCompleted:
	default:
		return ResultEntry{}, apperr.Validation("%s: invalid result status %s", field, in.Status)
	}
	stored.Status = in.Status
	stored.ResultValue = in.ResultValue
	stored.Remarks = in.Remarks
	return stored, nil
}
