package ranker

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
)

var day1 = time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC)

func exampleArchive() post.Archive {
	return post.Archive{
		"p1": {ID: "p1", CreatedAt: day1.Add(10 * time.Hour), Title: "GME to the moon", Score: 100},
		"p2": {ID: "p2", CreatedAt: day1.Add(11 * time.Hour), Title: "AMC and GME both rising", Score: 50},
		"p3": {ID: "p3", CreatedAt: day1.Add(33 * time.Hour), Title: "boring day", Score: 10},
	}
}

func TestRankExample(t *testing.T) {
	window := post.Select(exampleArchive(), day1, day1.Add(24*time.Hour-time.Second))
	b := index.NewBuilder(dictionary.NewSet("the", "a"), []string{"🚀", "moon"})
	ti, rel := b.Build(window)
	ctx := index.Context(ti, rel)
	allow := dictionary.NewSet("GME", "AMC")

	tests := []struct {
		name string
		ti   index.TermIndex
		fn   ScoreFunc
		want []Entry
	}{
		{"count", ti, Count, []Entry{{1, "GME", 2}, {2, "AMC", 1}}},
		{"score", ti, Score, []Entry{{1, "GME", 150}, {2, "AMC", 50}}},
		{"density", ti, ScoreDensity, []Entry{{1, "GME", 75}, {2, "AMC", 50}}},
		{"context", ctx, Count, []Entry{{1, "GME", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.ti, window, tt.fn, allow, 10)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Rank = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankAllowListEnforced(t *testing.T) {
	ti := index.TermIndex{
		"the":  index.NewPostSet("1", "2", "3", "4"),
		"GME":  index.NewPostSet("1", "2"),
		"moon": index.NewPostSet("1", "2", "3"),
		"AMC":  index.NewPostSet("4"),
	}
	allow := dictionary.NewSet("GME", "AMC", "TSLA")
	got := Rank(ti, nil, Count, allow, 10)
	for _, e := range got {
		if !allow.Contains(e.Term) {
			t.Errorf("term %q not in allow-list", e.Term)
		}
	}
	if len(got) != 2 || got[0].Term != "GME" || got[1].Term != "AMC" {
		t.Errorf("Rank = %v", got)
	}
}

func TestRankTieBreakLexicographic(t *testing.T) {
	ti := index.TermIndex{
		"NOK": index.NewPostSet("1"),
		"AMC": index.NewPostSet("2"),
		"BB":  index.NewPostSet("3"),
		"GME": index.NewPostSet("4", "5"),
	}
	allow := dictionary.NewSet("NOK", "AMC", "BB", "GME")
	got := Rank(ti, nil, Count, allow, 10)
	want := []Entry{{1, "GME", 2}, {2, "AMC", 1}, {3, "BB", 1}, {4, "NOK", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
	for i := 0; i < 20; i++ {
		if again := Rank(ti, nil, Count, allow, 10); !reflect.DeepEqual(again, want) {
			t.Fatalf("run %d not deterministic: %v", i, again)
		}
	}
}

func TestRankTopN(t *testing.T) {
	ti := index.TermIndex{}
	allow := dictionary.Set{}
	for i := 0; i < 15; i++ {
		term := fmt.Sprintf("T%02d", i)
		ids := make([]string, i+1)
		for j := range ids {
			ids[j] = fmt.Sprintf("p%d", j)
		}
		ti[term] = index.NewPostSet(ids...)
		allow[term] = struct{}{}
	}
	if got := Rank(ti, nil, Count, allow, 3); len(got) != 3 || got[0].Term != "T14" {
		t.Errorf("top 3 = %v", got)
	}
	if got := Rank(ti, nil, Count, allow, 0); len(got) != DefaultTopN {
		t.Errorf("default topN returned %d entries", len(got))
	}
}

// A rounded zero on an allow-listed term ends the pass, so the negative
// value below it is never reported.
func TestRankEarlyStopOnZero(t *testing.T) {
	window := post.Archive{
		"1": {ID: "1", Score: 10},
		"2": {ID: "2", Score: 0},
		"3": {ID: "3", Score: -5},
	}
	ti := index.TermIndex{
		"GME": index.NewPostSet("1"),
		"AMC": index.NewPostSet("2"),
		"BB":  index.NewPostSet("3"),
	}
	allow := dictionary.NewSet("GME", "AMC", "BB")
	got := Rank(ti, window, Score, allow, 10)
	want := []Entry{{1, "GME", 10}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRankZeroOnNonAllowedDoesNotStop(t *testing.T) {
	window := post.Archive{
		"1": {ID: "1", Score: 0},
		"2": {ID: "2", Score: -4},
	}
	ti := index.TermIndex{
		"the": index.NewPostSet("1"),
		"BB":  index.NewPostSet("2"),
	}
	got := Rank(ti, window, Score, dictionary.NewSet("BB"), 10)
	want := []Entry{{1, "BB", -4}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank = %v, want %v", got, want)
	}
}

func TestRankRoundsHalfToEven(t *testing.T) {
	window := post.Archive{
		"1": {ID: "1", Score: 1},
		"2": {ID: "2", Score: 0},
		"3": {ID: "3", Score: 5},
		"4": {ID: "4", Score: 0},
	}
	ti := index.TermIndex{
		"AMC": index.NewPostSet("3", "4"),
		"GME": index.NewPostSet("1", "2"),
	}
	allow := dictionary.NewSet("AMC", "GME")
	got := Rank(ti, window, ScoreDensity, allow, 10)
	if len(got) != 1 || got[0].Term != "AMC" || got[0].Value != 2 {
		t.Errorf("Rank = %v, want AMC=2 then stop at GME=0.5", got)
	}
}

func TestRankEmptyIndex(t *testing.T) {
	if got := Rank(index.TermIndex{}, post.Archive{}, Count, dictionary.NewSet("GME"), 10); len(got) != 0 {
		t.Errorf("Rank = %v", got)
	}
}

func TestScoreDensityPanicsOnMissingTerm(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	ScoreDensity(index.TermIndex{}, nil, "GME")
}

func TestRankAll(t *testing.T) {
	window := post.Select(exampleArchive(), day1, day1.Add(24*time.Hour-time.Second))
	b := index.NewBuilder(dictionary.NewSet("the", "a"), []string{"🚀", "moon"})
	ti, rel := b.Build(window)
	rankings := RankAll(ti, index.Context(ti, rel), window, dictionary.NewSet("GME", "AMC"), 10)

	if len(rankings) != 4 {
		t.Fatalf("got %d rankings", len(rankings))
	}
	byName := map[string][]Entry{}
	for _, r := range rankings {
		byName[r.Name] = r.Entries
	}
	if got := byName["Context"]; !reflect.DeepEqual(got, []Entry{{1, "GME", 1}}) {
		t.Errorf("Context = %v", got)
	}
	if got := byName["SDensity"]; len(got) != 2 || got[0].Value != 75 {
		t.Errorf("SDensity = %v", got)
	}
}

func TestParseMetric(t *testing.T) {
	for _, m := range AllMetrics {
		got, ok := ParseMetric(m.String())
		if !ok || got != m {
			t.Errorf("ParseMetric(%q) = %v, %v", m, got, ok)
		}
	}
	if _, ok := ParseMetric("Bogus"); ok {
		t.Error("unknown metric accepted")
	}
}

func BenchmarkRank(b *testing.B) {
	ti := index.TermIndex{}
	allow := dictionary.Set{}
	for i := 0; i < 2000; i++ {
		term := fmt.Sprintf("T%04d", i)
		ti[term] = index.NewPostSet(fmt.Sprintf("p%d", i%50), fmt.Sprintf("p%d", i%7))
		if i%10 == 0 {
			allow[term] = struct{}{}
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(ti, nil, Count, allow, 10)
	}
}
