package schema

import (
	"fmt"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// safeWiden maps a live column type to the ALTER targets that cannot lose
// data, in ladder order. Boolean is absent: the server cannot cast boolean
// columns implicitly, so a live boolean column is never altered.
var safeWiden = map[tabsync.ColumnType][]tabsync.ColumnType{
	tabsync.TypeInteger:   {tabsync.TypeDecimal, tabsync.TypeText},
	tabsync.TypeDecimal:   {tabsync.TypeText},
	tabsync.TypeDate:      {tabsync.TypeTimestamp, tabsync.TypeText},
	tabsync.TypeTimestamp: {tabsync.TypeText},
}

// subsumes reports whether every value of candidate type c is acceptable
// input for a column of type t.
func subsumes(c, t tabsync.ColumnType) bool {
	if c == t || t == tabsync.TypeText {
		return true
	}
	switch c {
	case tabsync.TypeInteger:
		return t == tabsync.TypeDecimal
	case tabsync.TypeDate:
		return t == tabsync.TypeTimestamp
	default:
		return false
	}
}

// canAlter reports whether a live column of type from may be altered to
// type to without loss.
func canAlter(from, to tabsync.ColumnType) bool {
	for _, t := range safeWiden[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ladder is the type precedence order, narrowest first.
var ladder = []tabsync.ColumnType{
	tabsync.TypeInteger,
	tabsync.TypeDecimal,
	tabsync.TypeBoolean,
	tabsync.TypeDate,
	tabsync.TypeTimestamp,
	tabsync.TypeText,
}

// Reconcile computes the plan that makes the live table able to hold the
// candidate's data under the requested mode. It is a pure function: no
// database access, no side effects, deterministic output.
//
// Structural changes are additive only. Live columns absent from the
// candidate stay untouched, live types are never narrowed, and a live type
// the candidate cannot widen to safely is a schema conflict.
func Reconcile(candidate *tabsync.CandidateSchema, live *tabsync.LiveSchema, mode tabsync.SyncMode) (*tabsync.ReconciliationPlan, error) {
	if err := validateKeys(candidate, mode); err != nil {
		return nil, err
	}

	plan := &tabsync.ReconciliationPlan{TableExists: live != nil}

	if mode == tabsync.ModeDelete {
		if live != nil {
			plan.Structural = append(plan.Structural, tabsync.PlanOp{Kind: tabsync.OpDropTable})
		}
		plan.Structural = append(plan.Structural, tabsync.PlanOp{Kind: tabsync.OpCreateTable})
		plan.Data = tabsync.DataInsert
		return plan, nil
	}

	// Modes replace and update share structural handling.
	if live == nil {
		plan.Structural = append(plan.Structural, tabsync.PlanOp{Kind: tabsync.OpCreateTable})
	} else {
		for _, cand := range candidate.Columns {
			liveCol, exists := live.Column(cand.Name)
			if !exists {
				// Added columns never carry NOT NULL: existing rows could
				// not satisfy it.
				plan.Structural = append(plan.Structural, tabsync.PlanOp{
					Kind:   tabsync.OpAddColumn,
					Column: tabsync.Column{Name: cand.Name, Type: cand.Type, Nullable: true},
				})
				continue
			}

			target, err := resolveColumnType(cand, liveCol)
			if err != nil {
				return nil, err
			}
			if target != liveCol.Type {
				plan.Structural = append(plan.Structural, tabsync.PlanOp{
					Kind:     tabsync.OpWidenColumn,
					Column:   tabsync.Column{Name: cand.Name, Type: target, Nullable: liveCol.Nullable},
					FromType: liveCol.Type,
				})
			}
			if !liveCol.Nullable && cand.Nullable {
				plan.Structural = append(plan.Structural, tabsync.PlanOp{
					Kind:   tabsync.OpRelaxNull,
					Column: tabsync.Column{Name: cand.Name, Type: target, Nullable: true},
				})
			}
		}
	}

	switch {
	case mode == tabsync.ModeReplace && live != nil:
		plan.Data = tabsync.DataTruncateInsert
	case mode == tabsync.ModeUpdate && len(candidate.KeyColumns) > 0:
		plan.Data = tabsync.DataUpsert
	case mode == tabsync.ModeUpdate:
		plan.Data = tabsync.DataInsert
		plan.Warnings = append(plan.Warnings,
			"mode update without key columns: rows are appended, not merged")
	default:
		plan.Data = tabsync.DataInsert
	}

	return plan, nil
}

// resolveColumnType finds the narrowest type the live column can hold the
// candidate's values in, either as-is or through one safe ALTER.
func resolveColumnType(cand, liveCol tabsync.Column) (tabsync.ColumnType, error) {
	for _, t := range ladder {
		if t != liveCol.Type && !canAlter(liveCol.Type, t) {
			continue
		}
		if subsumes(cand.Type, t) {
			return t, nil
		}
	}
	return 0, fmt.Errorf(
		"column %q is %s in the live table but the file holds %s values and no safe widening exists (rerun with --mode delete to rebuild the table): %w",
		cand.Name, liveCol.Type, cand.Type, tabsync.ErrSchemaConflict)
}

// validateKeys checks that every configured key column is present in the
// candidate schema. Keys apply to mode update only.
func validateKeys(candidate *tabsync.CandidateSchema, mode tabsync.SyncMode) error {
	if mode != tabsync.ModeUpdate {
		return nil
	}
	for _, key := range candidate.KeyColumns {
		if _, ok := candidate.Column(key); !ok {
			return fmt.Errorf("key column %q is not a column of the file: %w", key, tabsync.ErrSchemaConflict)
		}
	}
	return nil
}
