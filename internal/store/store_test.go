package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/outreachbot/internal/models"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestAppendProspectsDedupesByURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []models.Prospect{
		{ProfileURL: "https://www.linkedin.com/in/alice", Name: "Alice Chen", JobTitle: "Talent Acquisition Lead"},
		{ProfileURL: "https://www.linkedin.com/in/bob", Name: "Bob Okafor", JobTitle: "Hiring Manager"},
	}
	stored, dups, err := s.AppendProspects(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 2, stored)
	require.Equal(t, 0, dups)

	// Same batch again: every row is a duplicate and nothing changes.
	stored, dups, err = s.AppendProspects(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, 0, stored)
	require.Equal(t, 2, dups)

	urls, err := s.LoadProspectURLs(ctx)
	require.NoError(t, err)
	require.Len(t, urls, 2)
	require.True(t, urls["https://www.linkedin.com/in/alice"])
}

func TestLoadPendingProspectsExcludesSucceeded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.AppendProspects(ctx, []models.Prospect{
		{ProfileURL: "https://www.linkedin.com/in/alice", Name: "Alice Chen", JobTitle: "Recruiter"},
		{ProfileURL: "https://www.linkedin.com/in/bob", Name: "Bob Okafor", JobTitle: "Recruiter"},
	})
	require.NoError(t, err)

	require.NoError(t, s.AppendResult(ctx, &models.ConnectionResult{
		ProfileURL:  "https://www.linkedin.com/in/alice",
		Success:     true,
		MessageSent: "Hi Alice",
		Elapsed:     3 * time.Second,
	}))
	// A failed attempt keeps the prospect pending.
	require.NoError(t, s.AppendResult(ctx, &models.ConnectionResult{
		ProfileURL: "https://www.linkedin.com/in/bob",
		Success:    false,
		ErrorClass: models.ErrClassButtonNotFound,
		RetryCount: 3,
	}))

	pending, err := s.LoadPendingProspects(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "https://www.linkedin.com/in/bob", pending[0].ProfileURL)
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.AppendProspects(ctx, []models.Prospect{
		{ProfileURL: "https://www.linkedin.com/in/alice", Name: "Alice Chen", JobTitle: "Recruiter"},
	})
	require.NoError(t, err)
	require.NoError(t, s.AppendResult(ctx, &models.ConnectionResult{
		ProfileURL: "https://www.linkedin.com/in/alice", Success: true, MessageSent: "Hi",
	}))
	require.NoError(t, s.AppendRunSummary(ctx, &models.RunSummary{
		RunType: models.RunTypeConnection, TotalProspects: 1, Successful: 1,
	}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, st.Prospects)
	require.Equal(t, 0, st.Pending)
	require.Equal(t, 1, st.RequestsSent)
	require.Equal(t, 0, st.RequestsFailed)
	require.Equal(t, 1, st.SuccessfulToday)
}
