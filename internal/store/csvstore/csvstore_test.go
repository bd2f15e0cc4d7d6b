package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
)

var day1 = time.Date(2021, 1, 28, 0, 0, 0, 0, time.UTC)

func TestArchiveFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "history.csv")
	store := NewArchiveFile(path)

	a := post.Archive{
		"p1": {ID: "p1", CreatedAt: day1.Add(10 * time.Hour), Title: "GME to the moon", Score: 100, Ratio: 0.97},
		"p2": {ID: "p2", CreatedAt: day1.Add(11 * time.Hour), Title: "AMC, GME and \"BB\"", Score: -3, Ratio: 0.4},
	}
	if err := store.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, report, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Rows != 2 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	want := post.Archive{
		"p1": a["p1"],
		"p2": {ID: "p2", CreatedAt: a["p2"].CreatedAt, Title: "AMC، GME and \"BB\"", Score: -3, Ratio: 0.4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load =\n%v\nwant\n%v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	first := strings.SplitN(string(data), "\n", 2)[0]
	if first != "p1,2021-01-28 10:00:00,GME to the moon,100,0.97" {
		t.Errorf("first row = %q", first)
	}
}

func TestArchiveFileMissing(t *testing.T) {
	got, report, err := NewArchiveFile(filepath.Join(t.TempDir(), "none.csv")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 || report.Rows != 0 {
		t.Errorf("missing file loaded %d posts", len(got))
	}
}

func TestArchiveFileSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	content := strings.Join([]string{
		"p1,01/28/2021 10:00:00,GME to the moon,100,0.97",
		"p2,2021-01-28 11:00,AMC rising,50,0.9",
		"p3,2021-01-28:12,colon before hour,5,0.5",
		"p4,2021-01-28,date only,1,1",
		"too,few,columns",
		",2021-01-28 10:00:00,no id,1,1",
		"p5,yesterday,bad time,1,1",
		"p6,2021-01-28 10:00:00,bad score,lots,1",
		"p7,2021-01-28 10:00:00,bad ratio,1,high",
		"p8,2021-01-28 10:00:00,too,many,1,1",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	got, report, err := NewArchiveFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Rows != 4 || report.Skipped != 6 {
		t.Errorf("report = %+v, want 4 rows, 6 skipped", report)
	}
	wantTimes := map[string]time.Time{
		"p1": day1.Add(10 * time.Hour),
		"p2": day1.Add(11 * time.Hour),
		"p3": day1.Add(12 * time.Hour),
		"p4": day1,
	}
	for id, want := range wantTimes {
		if p, ok := got[id]; !ok || !p.CreatedAt.Equal(want) {
			t.Errorf("%s = %v, want %v", id, p.CreatedAt, want)
		}
	}
}

func TestArchiveFileKeepsLegacyQuotedTitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	content := strings.Join([]string{
		`p1,2021-01-28 10:00:00,"Quoted" says GME,10,0.9`,
		`p2,2021-01-28 11:00:00,AMC rising,5,0.5`,
		``,
		`p3,2021-01-28 12:00:00,say "hi" to BB,1,1`,
		`p4,2021-01-28 13:00:00,"unterminated title,2,0.2`,
		`p5,2021-01-28 14:00:00,"AMC ""BB"" fine",3,0.3`,
		`p6,2021-01-28 15:00:00,"broken" row,many,0.1`,
		``,
	}, "\r\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	got, report, err := NewArchiveFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if report.Rows != 5 || report.Skipped != 1 {
		t.Errorf("report = %+v, want 5 rows, 1 skipped", report)
	}
	want := map[string]string{
		"p1": `"Quoted" says GME`,
		"p2": "AMC rising",
		"p3": `say "hi" to BB`,
		"p4": `"unterminated title`,
		"p5": `AMC "BB" fine`,
	}
	for id, title := range want {
		p, ok := got[id]
		if !ok {
			t.Errorf("%s missing", id)
			continue
		}
		if p.Title != title {
			t.Errorf("%s title = %q, want %q", id, p.Title, title)
		}
	}
	if p := got["p1"]; p.Score != 10 || !p.CreatedAt.Equal(day1.Add(10*time.Hour)) {
		t.Errorf("p1 = %+v", p)
	}
	if _, ok := got["p6"]; ok {
		t.Error("p6 has a bad score and should be skipped")
	}
}

func TestRankDirAppendAndSeries(t *testing.T) {
	ctx := context.Background()
	dir := NewRankDir(filepath.Join(t.TempDir(), "Log_data"))
	w1 := exporter.Row{From: day1, To: day1.Add(24*time.Hour - time.Second), Value: 2}
	w2 := exporter.Row{From: day1.Add(24 * time.Hour), To: day1.Add(48*time.Hour - time.Second), Value: 5}

	mustAppend(t, dir, "GME", "Count", w1, true)
	mustAppend(t, dir, "GME", "Count", w2, false)
	mustAppend(t, dir, "AMC", "Count", w1, true)
	mustAppend(t, dir, "GME", "Score", w1, true)

	data, err := os.ReadFile(dir.Path("GME", "Count"))
	if err != nil {
		t.Fatal(err)
	}
	want := "2021-01-28 00:00:00,2021-01-28 23:59:59,2\n2021-01-29 00:00:00,2021-01-29 23:59:59,5\n"
	if string(data) != want {
		t.Errorf("GME_Count.csv =\n%s\nwant\n%s", data, want)
	}

	series, err := dir.Series(ctx)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	var keys []string
	for _, s := range series {
		keys = append(keys, s.Term+"_"+s.Metric)
	}
	if !reflect.DeepEqual(keys, []string{"AMC_Count", "GME_Count", "GME_Score"}) {
		t.Errorf("series order = %v", keys)
	}
	if rows := series[1].Rows; !reflect.DeepEqual(rows, []exporter.Row{w1, w2}) {
		t.Errorf("GME_Count rows = %v", rows)
	}

	mustAppend(t, dir, "GME", "Count", w2, true)
	series, _ = dir.Series(ctx)
	if rows := series[1].Rows; len(rows) != 1 {
		t.Errorf("overwrite kept %d rows", len(rows))
	}
}

func TestRankDirReset(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := NewRankDir(root)
	mustAppend(t, dir, "GME", "Count", exporter.Row{From: day1, To: day1, Value: 1}, true)
	if err := os.WriteFile(filepath.Join(root, "maxDate.txt"), []byte("2021-01-28 00:00:00\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := dir.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 1 || entries[0].Name() != "maxDate.txt" {
		t.Errorf("after reset: %v", entries)
	}
	if err := NewRankDir(filepath.Join(root, "missing")).Reset(ctx); err != nil {
		t.Errorf("Reset on missing dir: %v", err)
	}
}

func TestRankDirPrune(t *testing.T) {
	ctx := context.Background()
	dir := NewRankDir(t.TempDir())
	row := func(day int) exporter.Row {
		to := day1.Add(time.Duration(day) * 24 * time.Hour)
		return exporter.Row{From: to.Add(-24*time.Hour + time.Second), To: to, Value: 1}
	}
	mustAppend(t, dir, "GME", "Count", row(10), true)
	mustAppend(t, dir, "AMC", "Count", row(1), true)
	mustAppend(t, dir, "AMC", "Count", row(7), false)
	mustAppend(t, dir, "BB", "Count", row(6), true)
	mustAppend(t, dir, "NOK", "Score", row(2), true)

	removed, err := dir.Prune(ctx, 3*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	sort.Strings(removed)
	if !reflect.DeepEqual(removed, []string{"BB_Count.csv", "NOK_Score.csv"}) {
		t.Errorf("removed = %v", removed)
	}
	series, _ := dir.Series(ctx)
	if len(series) != 2 {
		t.Errorf("%d series left, want 2", len(series))
	}
}

func TestWatermarkFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "Log_data", "maxDate.txt")
	wm := NewWatermarkFile(path)

	got, err := wm.Load(ctx)
	if err != nil || !got.IsZero() {
		t.Fatalf("Load missing = %v, %v", got, err)
	}
	want := day1.Add(24*time.Hour - time.Second)
	if err := wm.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "2021-01-28 23:59:59\n" {
		t.Errorf("file = %q", data)
	}
	got, err = wm.Load(ctx)
	if err != nil || !got.Equal(want) {
		t.Errorf("Load = %v, %v, want %v", got, err, want)
	}

	if err := os.WriteFile(path, []byte("not a time\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := wm.Load(ctx); err == nil {
		t.Error("corrupt watermark accepted")
	}
}

func mustAppend(t *testing.T, dir *RankDir, term, metric string, row exporter.Row, overwrite bool) {
	t.Helper()
	if err := dir.Append(context.Background(), term, metric, row, overwrite); err != nil {
		t.Fatalf("Append %s_%s: %v", term, metric, err)
	}
}
