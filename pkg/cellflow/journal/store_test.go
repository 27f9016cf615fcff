package journal_test

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/cellflow/pkg/cellflow/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) journal.Store

func entry(id, eventType string) journal.Entry {
	return journal.Entry{
		EventID:   id,
		BusID:     "CORE",
		Type:      eventType,
		Category:  journal.CategoryOf(eventType),
		Source:    "test",
		Genealogy: []string{"AGENT"},
		Bridged:   true,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:   json.RawMessage(`{"q":61.8}`),
	}
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	t.Run(name+"/Append_and_Recent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		in := entry("ev-1", "judgment.created")
		out, err := store.Append(in)
		require.NoError(t, err)
		assert.Equal(t, int64(1), out.Seq)

		got, err := store.Recent(10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ev-1", got[0].EventID)
		assert.Equal(t, "CORE", got[0].BusID)
		assert.Equal(t, "judgment", got[0].Category)
		assert.Equal(t, []string{"AGENT"}, got[0].Genealogy)
		assert.True(t, got[0].Bridged)
		assert.True(t, in.Timestamp.Equal(got[0].Timestamp))
		assert.JSONEq(t, `{"q":61.8}`, string(got[0].Payload))
	})

	t.Run(name+"/Recent_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		got, err := store.Recent(5)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run(name+"/Recent_NewestOldestFirst", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 0; i < 5; i++ {
			_, err := store.Append(entry(fmt.Sprintf("ev-%d", i), "x.y"))
			require.NoError(t, err)
		}

		got, err := store.Recent(3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "ev-2", got[0].EventID)
		assert.Equal(t, "ev-4", got[2].EventID)
		assert.Less(t, got[0].Seq, got[1].Seq)

		all, err := store.Recent(0)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run(name+"/ByType", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i, typ := range []string{"a.x", "b.x", "a.x", "a.x", "b.x"} {
			_, err := store.Append(entry(fmt.Sprintf("ev-%d", i), typ))
			require.NoError(t, err)
		}

		got, err := store.ByType("a.x", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "ev-2", got[0].EventID)
		assert.Equal(t, "ev-3", got[1].EventID)

		none, err := store.ByType("missing", 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run(name+"/Count", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for i := 0; i < 4; i++ {
			_, err := store.Append(entry(fmt.Sprintf("ev-%d", i), "x.y"))
			require.NoError(t, err)
		}
		n, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run(name+"/DataCopy", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		in := entry("ev-1", "x.y")
		_, err := store.Append(in)
		require.NoError(t, err)

		in.Genealogy[0] = "MUTATED"
		in.Payload[0] = '['

		got, err := store.Recent(1)
		require.NoError(t, err)
		assert.Equal(t, []string{"AGENT"}, got[0].Genealogy)
		assert.JSONEq(t, `{"q":61.8}`, string(got[0].Payload))
	})

	t.Run(name+"/Concurrent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					_, err := store.Append(entry(fmt.Sprintf("ev-%d-%d", g, i), "x.y"))
					assert.NoError(t, err)
				}
			}(g)
		}
		wg.Wait()

		n, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(80), n)
	})

	t.Run(name+"/Close_ThenError", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		_, err := store.Append(entry("ev-1", "x.y"))
		assert.ErrorIs(t, err, journal.ErrStoreClosed)

		_, err = store.Recent(1)
		assert.ErrorIs(t, err, journal.ErrStoreClosed)

		_, err = store.ByType("x.y", 1)
		assert.ErrorIs(t, err, journal.ErrStoreClosed)

		_, err = store.Count()
		assert.ErrorIs(t, err, journal.ErrStoreClosed)

		assert.NoError(t, store.Close(), "double close is a no-op")
	})
}

func TestStoreContract(t *testing.T) {
	storeContractTest(t, "MemoryStore", func(t *testing.T) journal.Store {
		return journal.NewMemoryStore(100)
	})
	storeContractTest(t, "SQLiteStore", func(t *testing.T) journal.Store {
		s, err := journal.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return s
	})
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	store := journal.NewMemoryStore(journal.DefaultCapacity)
	for i := 0; i < journal.DefaultCapacity+1; i++ {
		_, err := store.Append(entry(fmt.Sprintf("ev-%d", i), "x.y"))
		require.NoError(t, err)
	}

	all, err := store.Recent(0)
	require.NoError(t, err)
	require.Len(t, all, journal.DefaultCapacity)
	assert.Equal(t, "ev-1", all[0].EventID, "90th entry drops the first")

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(journal.DefaultCapacity+1), n)
}

func TestOpen(t *testing.T) {
	s, err := journal.Open("", 0)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = journal.Open(journal.RingPath, 5)
	require.NoError(t, err)
	_, isMem := s.(*journal.MemoryStore)
	assert.True(t, isMem)
	require.NoError(t, s.Close())

	s, err = journal.Open(":memory:", 0)
	require.NoError(t, err)
	_, isSQL := s.(*journal.SQLiteStore)
	assert.True(t, isSQL)
	require.NoError(t, s.Close())

	_, err = journal.Open("/nonexistent/path/journal.db", 0)
	assert.Error(t, err)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, "judgment", journal.CategoryOf("judgment.created"))
	assert.Equal(t, "learning", journal.CategoryOf("learning.q_table_updated"))
	assert.Equal(t, "plain", journal.CategoryOf("plain"))
	assert.Equal(t, ".hidden", journal.CategoryOf(".hidden"))
}
