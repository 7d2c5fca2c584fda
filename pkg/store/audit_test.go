package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossrealm/xrealmd/pkg/xrealm"
)

func decisionFixture(outcome string) *xrealm.DecisionEntry {
	return &xrealm.DecisionEntry{
		Timestamp:   time.Now(),
		RequestID:   "req-1",
		Client:      "user@R2.TEST",
		OriginRealm: "R2.TEST",
		Service:     "host/web01@R1.TEST",
		Edge:        "R1.TEST@R2.TEST",
		Outcome:     outcome,
		Reason:      "no_rule",
		Enforcing:   true,
		DurationUS:  42,
	}
}

func TestInsertAndListDecisionEntries(t *testing.T) {
	s := setupTestStore(t)

	id, err := s.InsertDecisionEntry(decisionFixture("deny"))
	require.NoError(t, err)
	assert.Positive(t, id)

	allow := decisionFixture("allow")
	allow.Reason = "rule_match"
	allow.Rule = "xr:@R2.TEST"
	allow.Enforcing = false
	_, err = s.InsertDecisionEntry(allow)
	require.NoError(t, err)

	entries, err := s.ListDecisionEntries(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "allow", entries[0].Outcome)
	assert.Equal(t, "xr:@R2.TEST", entries[0].Rule)
	assert.False(t, entries[0].Enforcing)

	assert.Equal(t, "deny", entries[1].Outcome)
	assert.Equal(t, "user@R2.TEST", entries[1].Client)
	assert.Equal(t, "R1.TEST@R2.TEST", entries[1].Edge)
	assert.True(t, entries[1].Enforcing)
	assert.Equal(t, int64(42), entries[1].DurationUS)
}

func TestListDecisionEntriesLimit(t *testing.T) {
	s := setupTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.InsertDecisionEntry(decisionFixture("deny"))
		require.NoError(t, err)
	}

	entries, err := s.ListDecisionEntries(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// TestStoreDecisionLogger wires the engine's audit path through the store.
func TestStoreDecisionLogger(t *testing.T) {
	s := setupTestStore(t)

	logger := xrealm.NewStoreDecisionLogger(s)
	require.NoError(t, logger.LogDecision(context.Background(), *decisionFixture("allow_logged")))

	entries, err := s.ListDecisionEntries(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "allow_logged", entries[0].Outcome)
}
