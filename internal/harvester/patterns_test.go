package harvester

import (
	"strings"
	"testing"
)

func TestMutateEnhanceDetection(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})
	before := h.Patterns()

	record := h.Mutate(Mutation{
		Type:      MutationEnhanceDetection,
		ServiceID: "stripe",
		Patterns:  []string{`rk_live_[A-Za-z0-9]{24,}`},
	})
	if !record.Success {
		t.Fatalf("mutation rejected: %s", record.Error)
	}
	if record.FromVersion != 1 || record.ToVersion != 2 {
		t.Errorf("versions = %d -> %d, want 1 -> 2", record.FromVersion, record.ToVersion)
	}

	after := h.Patterns()
	if after.Version != 2 {
		t.Errorf("published version = %d, want 2", after.Version)
	}
	if len(after.Service["stripe"]) != 1 {
		t.Errorf("stripe patterns = %v", after.Service["stripe"])
	}

	// The snapshot taken before the mutation must be untouched.
	if len(before.Service["stripe"]) != 0 {
		t.Error("mutation leaked into the previous pattern set")
	}
}

func TestMutateInvalidPatternRollsBack(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})

	record := h.Mutate(Mutation{
		Type:      MutationEnhanceDetection,
		ServiceID: "stripe",
		Patterns:  []string{`[unclosed`},
	})
	if record.Success {
		t.Fatal("invalid regex should be rejected")
	}
	if record.Error == "" {
		t.Error("rejected mutation should carry the compile error")
	}
	if record.ToVersion != 1 {
		t.Errorf("ToVersion = %d, want the unchanged version 1", record.ToVersion)
	}

	set := h.Patterns()
	if set.Version != 1 {
		t.Errorf("published version = %d, rollback should keep 1", set.Version)
	}
	if len(set.Service["stripe"]) != 0 {
		t.Errorf("rejected patterns leaked into the set: %v", set.Service["stripe"])
	}
}

func TestMutateOptimizeExtractionPromotesPatterns(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})

	record := h.Mutate(Mutation{
		Type:     MutationOptimizeExtraction,
		Patterns: []string{`first_[a-z]{8}`, `second_[a-z]{8}`},
	})
	if !record.Success {
		t.Fatalf("mutation rejected: %s", record.Error)
	}

	generic := h.Patterns().Generic
	if generic[0] != `first_[a-z]{8}` || generic[1] != `second_[a-z]{8}` {
		t.Errorf("promoted patterns not at the front: %v", generic[:2])
	}
}

func TestMutateAddAuthMethod(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})

	if h.Patterns().interactive("gh configure") {
		t.Fatal("configure should not be interactive before the mutation")
	}

	record := h.Mutate(Mutation{
		Type:     MutationAddAuthMethod,
		Keywords: []string{"configure"},
	})
	if !record.Success {
		t.Fatalf("mutation rejected: %s", record.Error)
	}
	if !h.Patterns().interactive("gh configure") {
		t.Error("configure should be interactive after the mutation")
	}
}

func TestMutateImproveValidationOnlyIncreases(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})

	record := h.Mutate(Mutation{Type: MutationImproveValidation, MinLength: 12})
	if !record.Success {
		t.Fatalf("raise rejected: %s", record.Error)
	}
	if h.Patterns().MinCredentialLen != 12 {
		t.Errorf("MinCredentialLen = %d, want 12", h.Patterns().MinCredentialLen)
	}

	record = h.Mutate(Mutation{Type: MutationImproveValidation, MinLength: 6})
	if record.Success {
		t.Error("lowering the minimum length should be rejected")
	}
	if !strings.Contains(record.Error, "only increase") {
		t.Errorf("rejection reason = %q", record.Error)
	}
	if h.Patterns().MinCredentialLen != 12 {
		t.Errorf("failed mutation changed MinCredentialLen to %d", h.Patterns().MinCredentialLen)
	}
}

func TestMutateUnknownTypeRejected(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})

	record := h.Mutate(Mutation{Type: MutationType("rewrite-everything")})
	if record.Success {
		t.Error("unknown mutation type should be rejected")
	}
}

func TestMutationsAreRecorded(t *testing.T) {
	h := newTestHarvester(&fakeRunner{})

	h.Mutate(Mutation{Type: MutationAddAuthMethod, Keywords: []string{"signin"}})
	h.Mutate(Mutation{Type: MutationEnhanceDetection}) // Missing service id.

	records := h.Mutations()
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !records[0].Success || records[1].Success {
		t.Errorf("record outcomes = %t, %t; want true, false", records[0].Success, records[1].Success)
	}
	if records[0].ID == "" || records[0].ID == records[1].ID {
		t.Error("records should carry distinct ids")
	}
}

func TestDefaultPatternSetCompiles(t *testing.T) {
	if err := DefaultPatternSet().compile(); err != nil {
		t.Errorf("default pattern set does not compile: %v", err)
	}
}
