package answercache

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestFingerprint_NormalizesCaseAndWhitespace(t *testing.T) {
	base := Fingerprint("chess", "how many players can play")

	variants := []string{
		"How Many Players Can Play",
		"  how   many\tplayers can play  ",
		"HOW MANY PLAYERS CAN PLAY",
	}
	for _, v := range variants {
		if got := Fingerprint("chess", v); got != base {
			t.Errorf("Fingerprint(%q) = %q, want %q", v, got, base)
		}
	}

	// Different games or questions must not collide.
	if Fingerprint("go", "how many players can play") == base {
		t.Error("different games should produce different fingerprints")
	}
	if Fingerprint("chess", "how does castling work") == base {
		t.Error("different questions should produce different fingerprints")
	}
}

func TestCache_LookupStoreReplace(t *testing.T) {
	c := New()

	if _, ok := c.Lookup("chess", "how does castling work"); ok {
		t.Error("lookup on empty cache should miss")
	}

	first := Answer{Text: "The king moves two squares toward a rook."}
	c.Store("chess", "how does castling work", first, []string{"qa"})

	got, ok := c.Lookup("chess", "How Does Castling Work?")
	if !ok {
		t.Fatal("lookup after store should hit despite casing")
	}
	if got.Text != first.Text {
		t.Errorf("payload = %q, want %q", got.Text, first.Text)
	}

	// Store for an existing fingerprint is a full replacement and
	// restarts hit tracking.
	second := Answer{Text: "Castling moves king and rook together."}
	c.Store("chess", "how does castling work", second, nil)

	got, ok = c.Lookup("chess", "how does castling work")
	if !ok {
		t.Fatal("lookup after replacement should hit")
	}
	if got.Text != second.Text {
		t.Errorf("payload after replacement = %q, want %q", got.Text, second.Text)
	}
	if c.Len() != 1 {
		t.Errorf("entries = %d, want 1 (at most one entry per fingerprint)", c.Len())
	}

	stats := c.Stats("")
	if len(stats.TopEntries) != 1 {
		t.Fatalf("top entries = %d, want 1", len(stats.TopEntries))
	}
	if stats.TopEntries[0].HitCount != 1 {
		t.Errorf("hit count after replacement = %d, want 1 (reset on store)", stats.TopEntries[0].HitCount)
	}
}

func TestCache_InvalidateByTagScenario(t *testing.T) {
	c := New()

	payload := Answer{Text: "Two players."}
	c.Store("chess", "how many players can play", payload, []string{"qa"})

	if _, ok := c.Lookup("chess", "How Many Players Can Play?"); !ok {
		t.Fatal("case-insensitive lookup should hit")
	}

	if removed := c.InvalidateByTag("qa"); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, ok := c.Lookup("chess", "How Many Players Can Play?"); ok {
		t.Error("lookup after tag invalidation should miss")
	}
}

func TestCache_InvalidateByTagLeavesOthers(t *testing.T) {
	c := New()

	c.Store("chess", "q1", Answer{Text: "a1"}, []string{"qa"})
	c.Store("chess", "q2", Answer{Text: "a2"}, []string{"setup"})
	c.Store("catan", "q3", Answer{Text: "a3"}, []string{"qa", "setup"})

	if removed := c.InvalidateByTag("qa"); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if _, ok := c.Lookup("chess", "q2"); !ok {
		t.Error("entry without the tag should survive")
	}
	if _, ok := c.Lookup("chess", "q1"); ok {
		t.Error("tagged entry should be gone")
	}
	if _, ok := c.Lookup("catan", "q3"); ok {
		t.Error("entry carrying the tag among others should be gone")
	}
}

func TestCache_InvalidateByGame(t *testing.T) {
	c := New()

	for i := 0; i < 5; i++ {
		c.Store("chess", fmt.Sprintf("question %d", i), Answer{Text: "a"}, nil)
	}
	c.Store("catan", "longest road", Answer{Text: "b"}, nil)

	if removed := c.InvalidateByGame("chess"); removed != 5 {
		t.Errorf("removed = %d, want 5", removed)
	}

	for i := 0; i < 5; i++ {
		if _, ok := c.Lookup("chess", fmt.Sprintf("question %d", i)); ok {
			t.Fatalf("chess entry %d should be gone", i)
		}
	}
	if _, ok := c.Lookup("catan", "longest road"); !ok {
		t.Error("other game's entry should survive")
	}
}

func TestCache_StatsRates(t *testing.T) {
	c := New()

	c.Store("chess", "q", Answer{Text: "a"}, nil)

	c.Lookup("chess", "q")       // hit
	c.Lookup("chess", "missing") // miss
	c.Lookup("chess", "q")       // hit

	stats := c.Stats("")
	if stats.HitCount != 2 || stats.MissCount != 1 {
		t.Fatalf("hits/misses = %d/%d, want 2/1", stats.HitCount, stats.MissCount)
	}
	if stats.TotalRequests != 3 {
		t.Errorf("total = %d, want 3", stats.TotalRequests)
	}
	if got := stats.HitRate + stats.MissRate; got != 1 {
		t.Errorf("hitRate + missRate = %v, want 1", got)
	}
	if stats.SizeBytes <= 0 {
		t.Error("sizeBytes should be positive for a non-empty cache")
	}
}

func TestCache_StatsScopedToGame(t *testing.T) {
	c := New()

	c.Store("chess", "q", Answer{Text: "a"}, nil)
	c.Store("catan", "q", Answer{Text: "b"}, nil)

	c.Lookup("chess", "q")
	c.Lookup("chess", "q")
	c.Lookup("catan", "q")
	c.Lookup("catan", "missing")

	stats := c.Stats("catan")
	if stats.HitCount != 1 || stats.MissCount != 1 {
		t.Errorf("catan hits/misses = %d/%d, want 1/1", stats.HitCount, stats.MissCount)
	}
	if stats.Entries != 1 {
		t.Errorf("catan entries = %d, want 1", stats.Entries)
	}
	for _, e := range stats.TopEntries {
		if e.GameID != "catan" {
			t.Errorf("scoped top entries contain game %q", e.GameID)
		}
	}
}

func TestCache_TopEntriesOrdering(t *testing.T) {
	c := New()

	c.Store("chess", "popular", Answer{Text: "a"}, nil)
	c.Store("chess", "rare", Answer{Text: "b"}, nil)

	for i := 0; i < 3; i++ {
		c.Lookup("chess", "popular")
	}
	c.Lookup("chess", "rare")

	top := c.Stats("").TopEntries
	if len(top) != 2 {
		t.Fatalf("top entries = %d, want 2", len(top))
	}
	if top[0].Question != "popular" || top[0].HitCount != 3 {
		t.Errorf("top[0] = %q (%d hits), want popular with 3 hits", top[0].Question, top[0].HitCount)
	}
}

func TestValidateTarget(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"simple", "chess", false},
		{"hyphenated", "ticket-to-ride", false},
		{"namespaced tag", "qa:opening", false},
		{"empty", "", true},
		{"leading space", " chess", true},
		{"inner space", "chess game", true},
		{"newline", "chess\n", true},
		{"wildcard", "chess*", true},
		{"too long", strings.Repeat("g", MaxTargetLength+1), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTarget(tc.target)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateTarget(%q) = %v, wantErr = %v", tc.target, err, tc.wantErr)
			}
		})
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()

	const goroutines = 32
	const ops = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			game := fmt.Sprintf("game-%d", id%4)
			for j := 0; j < ops; j++ {
				switch j % 4 {
				case 0:
					c.Store(game, fmt.Sprintf("q-%d", j%16), Answer{Text: "a"}, []string{"qa"})
				case 1:
					c.Lookup(game, fmt.Sprintf("q-%d", j%16))
				case 2:
					c.InvalidateByTag("qa")
				case 3:
					c.Stats(game)
				}
			}
		}(i)
	}
	wg.Wait()

	// After the dust settles a full tag sweep must leave nothing tagged.
	c.InvalidateByTag("qa")
	if got := c.Len(); got != 0 {
		t.Errorf("entries after final tag invalidation = %d, want 0", got)
	}
}

func BenchmarkCache_Lookup(b *testing.B) {
	c := New()
	for i := 0; i < 256; i++ {
		c.Store("chess", fmt.Sprintf("question %d", i), Answer{Text: "answer"}, nil)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Lookup("chess", fmt.Sprintf("question %d", i%256))
			i++
		}
	})
}
