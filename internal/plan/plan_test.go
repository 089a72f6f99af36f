package plan

import (
	"testing"

	"envsync/internal/diff"
)

func TestParseStrategy(t *testing.T) {
	if _, err := ParseStrategy("safe"); err != nil {
		t.Errorf("safe should parse: %v", err)
	}
	if _, err := ParseStrategy("force"); err != nil {
		t.Errorf("force should parse: %v", err)
	}
	if _, err := ParseStrategy("yolo"); err == nil {
		t.Error("unknown strategy should fail")
	}
}

func TestBuildSafeNeverDeletes(t *testing.T) {
	report := &diff.DiffReport{
		ToAdd:    []string{"a.txt"},
		ToUpdate: []string{"b.txt"},
		ToDelete: []string{"c.txt", "d.txt"},
	}

	p, err := Build(report, StrategySafe)
	if err != nil {
		t.Fatal(err)
	}

	for _, op := range p.Operations {
		if op.Kind == OpDelete {
			t.Errorf("safe plan contains delete for %s", op.Path)
		}
	}
	if len(p.Orphans) != 2 {
		t.Errorf("orphans = %v, want c.txt and d.txt", p.Orphans)
	}
}

// The canonical scenario: a.txt only in source, b.txt differing, c.txt only
// in target.
func TestBuildStrategyScenario(t *testing.T) {
	report := &diff.DiffReport{
		ToAdd:    []string{"a.txt"},
		ToUpdate: []string{"b.txt"},
		ToDelete: []string{"c.txt"},
	}

	safe, err := Build(report, StrategySafe)
	if err != nil {
		t.Fatal(err)
	}
	wantSafe := []Operation{
		{Kind: OpCopy, Path: "a.txt"},
		{Kind: OpCopy, Path: "b.txt"},
	}
	assertOps(t, "safe", safe.Operations, wantSafe)

	force, err := Build(report, StrategyForce)
	if err != nil {
		t.Fatal(err)
	}
	wantForce := []Operation{
		{Kind: OpCopy, Path: "a.txt"},
		{Kind: OpCopy, Path: "b.txt"},
		{Kind: OpDelete, Path: "c.txt"},
	}
	assertOps(t, "force", force.Operations, wantForce)
}

func TestBuildForceOrdersDeletesAfterCopies(t *testing.T) {
	report := &diff.DiffReport{
		ToAdd:    []string{"new/file"},
		ToDelete: []string{"old/file"},
	}

	p, err := Build(report, StrategyForce)
	if err != nil {
		t.Fatal(err)
	}

	lastCopy, firstDelete := -1, -1
	for i, op := range p.Operations {
		switch op.Kind {
		case OpCopy:
			lastCopy = i
		case OpDelete:
			if firstDelete == -1 {
				firstDelete = i
			}
		}
	}
	if firstDelete < lastCopy {
		t.Errorf("plain delete at %d before copy at %d", firstDelete, lastCopy)
	}
}

func TestBuildTypeChangePairUnderBothStrategies(t *testing.T) {
	report := &diff.DiffReport{
		ToUpdate:    []string{"path"},
		TypeChanged: []string{"path"},
	}

	for _, strategy := range []Strategy{StrategySafe, StrategyForce} {
		p, err := Build(report, strategy)
		if err != nil {
			t.Fatal(err)
		}
		want := []Operation{
			{Kind: OpDelete, Path: "path", TypeChange: true},
			{Kind: OpCopy, Path: "path", TypeChange: true},
		}
		assertOps(t, string(strategy), p.Operations, want)
	}
}

func TestBuildEmptyReport(t *testing.T) {
	p, err := Build(&diff.DiffReport{}, StrategySafe)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Empty() {
		t.Errorf("plan for empty report should be empty, got %v", p.Operations)
	}
}

func TestBuildRejectsUnknownStrategy(t *testing.T) {
	if _, err := Build(&diff.DiffReport{}, Strategy("bogus")); err == nil {
		t.Fatal("expected error")
	}
}

func assertOps(t *testing.T, label string, got, want []Operation) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d operations %v, want %d", label, len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s: operation %d = %+v, want %+v", label, i, got[i], want[i])
		}
	}
}
