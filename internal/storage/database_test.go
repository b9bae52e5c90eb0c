package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "knolboard.db"))
	if err != nil {
		t.Fatalf("Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knolboard.db")
	for i := 0; i < 2; i++ {
		db, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d returned an unexpected error: %v", i+1, err)
		}
		db.Close()
	}
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	s, err := db.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession() returned an unexpected error: %v", err)
	}
	if s != nil {
		t.Fatalf("Expected no session in a fresh database, but got %+v", s)
	}

	expires := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := db.SaveSession(ctx, Session{Username: "ada", Token: "t1", ExpiresAt: sql.NullTime{Time: expires, Valid: true}}); err != nil {
		t.Fatalf("SaveSession() returned an unexpected error: %v", err)
	}
	if err := db.SaveSession(ctx, Session{Username: "bob", Token: "t2"}); err != nil {
		t.Fatalf("SaveSession() returned an unexpected error: %v", err)
	}

	s, err = db.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession() returned an unexpected error: %v", err)
	}
	if s == nil || s.Username != "bob" || s.Token != "t2" {
		t.Fatalf("Expected the latest session for bob, but got %+v", s)
	}
	if s.ExpiresAt.Valid {
		t.Errorf("Expected no expiry, but got %v", s.ExpiresAt.Time)
	}

	if err := db.SaveSession(ctx, Session{Username: "ada", Token: "t3", ExpiresAt: sql.NullTime{Time: expires, Valid: true}}); err != nil {
		t.Fatalf("SaveSession() returned an unexpected error: %v", err)
	}
	s, _ = db.LoadSession(ctx)
	if !s.ExpiresAt.Valid || !s.ExpiresAt.Time.Equal(expires) {
		t.Errorf("Expected expiry %v, but got %+v", expires, s.ExpiresAt)
	}

	if err := db.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession() returned an unexpected error: %v", err)
	}
	if err := db.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession() on an empty store returned an unexpected error: %v", err)
	}
	if s, _ := db.LoadSession(ctx); s != nil {
		t.Errorf("Expected no session after clear, but got %+v", s)
	}
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	first, err := db.UpsertSource(ctx, "1", "./notes")
	if err != nil {
		t.Fatalf("UpsertSource() returned an unexpected error: %v", err)
	}
	again, err := db.UpsertSource(ctx, "1", "./notes")
	if err != nil {
		t.Fatalf("UpsertSource() returned an unexpected error: %v", err)
	}
	if first.ID != again.ID {
		t.Errorf("Expected the same source id, but got %d and %d", first.ID, again.ID)
	}
	if first.LastScanned.Valid {
		t.Error("Expected a new source to be unscanned")
	}

	if _, err := db.UpsertSource(ctx, "2", "./notes"); err != nil {
		t.Fatalf("UpsertSource() returned an unexpected error: %v", err)
	}
	if err := db.UpdateSourceLastScanned(ctx, first.ID); err != nil {
		t.Fatalf("UpdateSourceLastScanned() returned an unexpected error: %v", err)
	}

	sources, err := db.GetAllSources(ctx)
	if err != nil {
		t.Fatalf("GetAllSources() returned an unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("Expected 2 sources, but got %d", len(sources))
	}
	if !sources[0].LastScanned.Valid || sources[1].LastScanned.Valid {
		t.Errorf("Expected only the first source scanned, but got %+v", sources)
	}

	missing, err := db.FindSource(ctx, "3", "./notes")
	if err != nil || missing != nil {
		t.Errorf("Expected no source, but got %+v, %v", missing, err)
	}
}

func TestImportedCards(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	notes, err := db.UpsertSource(ctx, "1", "./notes")
	if err != nil {
		t.Fatalf("UpsertSource() returned an unexpected error: %v", err)
	}
	shared, err := db.UpsertSource(ctx, "1", "./shared")
	if err != nil {
		t.Fatalf("UpsertSource() returned an unexpected error: %v", err)
	}

	for _, c := range []ImportedCard{
		{DeckID: "1", Hash: "h1", SourceID: notes.ID, CardID: "10", Front: "one"},
		{DeckID: "1", Hash: "h2", SourceID: notes.ID, CardID: "11", Front: "two"},
		{DeckID: "1", Hash: "h1", SourceID: shared.ID, CardID: "10", Front: "one"},
	} {
		if err := db.InsertImportedCard(ctx, c); err != nil {
			t.Fatalf("InsertImportedCard() returned an unexpected error: %v", err)
		}
	}

	t.Run("a shared hash keeps one row per source", func(t *testing.T) {
		for _, src := range []*Source{notes, shared} {
			cards, err := db.GetImportedCardsBySourceID(ctx, src.ID)
			if err != nil {
				t.Fatalf("GetImportedCardsBySourceID() returned an unexpected error: %v", err)
			}
			hasH1 := false
			for _, c := range cards {
				if c.Hash == "h1" {
					hasH1 = true
				}
			}
			if !hasH1 {
				t.Errorf("Expected source %s to still list h1, but got %+v", src.Path, cards)
			}
		}
	})

	t.Run("re-recording does not duplicate", func(t *testing.T) {
		if err := db.InsertImportedCard(ctx, ImportedCard{DeckID: "1", Hash: "h2", SourceID: notes.ID, CardID: "13", Front: "two"}); err != nil {
			t.Fatalf("InsertImportedCard() returned an unexpected error: %v", err)
		}
		cards, _ := db.GetImportedCardsBySourceID(ctx, notes.ID)
		if len(cards) != 2 {
			t.Fatalf("Expected 2 cards for the source, but got %d", len(cards))
		}
		found, _ := db.FindImportedCard(ctx, "1", "h2")
		if found == nil || found.CardID != "13" {
			t.Errorf("Expected card id 13 after re-recording, but got %+v", found)
		}
	})

	t.Run("delete only drops the given source's row", func(t *testing.T) {
		if err := db.DeleteImportedCard(ctx, "1", "h1", notes.ID); err != nil {
			t.Fatalf("DeleteImportedCard() returned an unexpected error: %v", err)
		}
		found, err := db.FindImportedCard(ctx, "1", "h1")
		if err != nil {
			t.Fatalf("FindImportedCard() returned an unexpected error: %v", err)
		}
		if found == nil || found.SourceID != shared.ID {
			t.Errorf("Expected h1 to remain listed by the shared source, but got %+v", found)
		}

		if err := db.DeleteImportedCard(ctx, "1", "h1", shared.ID); err != nil {
			t.Fatalf("DeleteImportedCard() returned an unexpected error: %v", err)
		}
		if c, _ := db.FindImportedCard(ctx, "1", "h1"); c != nil {
			t.Errorf("Expected h1 to be gone, but got %+v", c)
		}
	})

	t.Run("unknown hash", func(t *testing.T) {
		if c, err := db.FindImportedCard(ctx, "2", "h1"); err != nil || c != nil {
			t.Errorf("Expected no card in another deck, but got %+v, %v", c, err)
		}
	})
}
