package registry

import (
	"errors"
	"testing"
	"time"
)

type fakeUsedSink struct {
	records []UsedTokenRecord
	failNext bool
}

func (f *fakeUsedSink) AppendUsed(r UsedTokenRecord) error {
	if f.failNext {
		f.failNext = false
		return errors.New("boom")
	}
	f.records = append(f.records, r)
	return nil
}

type fakeEventSink struct {
	records []EventRecord
}

func (f *fakeEventSink) AppendEvent(r EventRecord) error {
	f.records = append(f.records, r)
	return nil
}

func TestRegistry_MarkUsedThenIsUsed(t *testing.T) {
	r := New(nil, nil, nil)
	if r.IsUsed("tok1") {
		t.Fatal("expected unused token to report not used")
	}
	r.MarkUsed("tok1", false, UsedTokenRecord{TokenID: "tok1"})
	if !r.IsUsed("tok1") {
		t.Fatal("expected token to be marked used")
	}
}

func TestRegistry_StrictCompositeKey(t *testing.T) {
	r := New(nil, nil, nil)
	rec := UsedTokenRecord{TokenID: "tokA", ProposalHash: "p1", EnvironmentFingerprint: "e1"}
	r.MarkUsed("tokA", true, rec)

	if !r.IsUsedComposite("p1", "e1") {
		t.Fatal("expected composite key to be marked used under strict mode")
	}
	if r.IsUsedComposite("p2", "e1") {
		t.Fatal("different proposal hash must not collide")
	}

	// A fresh token for the same proposal+environment is still blocked
	// under strict mode even though tokB itself was never marked used.
	if r.IsUsed("tokB") {
		t.Fatal("tokB was never marked used")
	}
	if !r.IsUsedComposite("p1", "e1") {
		t.Fatal("expected strict replay to block reissue for same proposal+environment")
	}
}

func TestRegistry_PersistenceFailureDoesNotUnblockReplay(t *testing.T) {
	sink := &fakeUsedSink{failNext: true}
	r := New(sink, nil, nil)
	r.MarkUsed("tok1", false, UsedTokenRecord{TokenID: "tok1"})
	if !r.IsUsed("tok1") {
		t.Fatal("in-memory replay enforcement must hold even if persistence fails")
	}
}

func TestRegistry_InitSkipsExpiredEntries(t *testing.T) {
	r := New(nil, nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Init([]HydrationEntry{
		{TokenID: "expired", Expiry: now.Add(-time.Hour)},
		{TokenID: "live", Expiry: now.Add(time.Hour)},
	}, now)

	if r.IsUsed("expired") {
		t.Fatal("expired entries must not be hydrated into the in-memory replay set")
	}
	if !r.IsUsed("live") {
		t.Fatal("non-expired entries must be hydrated into the in-memory replay set")
	}
}

func TestRegistry_AppendAudit(t *testing.T) {
	sink := &fakeEventSink{}
	r := New(nil, sink, nil)
	r.AppendAudit(EventRecord{Decision: "STOP", Reason: "no valid policy"})
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 event record, got %d", len(sink.records))
	}
}
