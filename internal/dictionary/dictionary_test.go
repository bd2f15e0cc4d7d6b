package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

func TestLoadTrimsAndCollapses(t *testing.T) {
	in := "GME\n  AMC \nGME\n\n\tTSLA\t\nBB"
	got, err := Load(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"AMC", "BB", "GME", "TSLA"}
	if !reflect.DeepEqual(got.Sorted(), want) {
		t.Errorf("Sorted = %v, want %v", got.Sorted(), want)
	}
}

func TestLoadKeepsCaseAndPunctuation(t *testing.T) {
	got, err := Load(strings.NewReader("the\nThe\ndon't\n"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, term := range []string{"the", "The", "don't"} {
		if !got.Contains(term) {
			t.Errorf("missing %q", term)
		}
	}
}

func TestLoadFirstColumn(t *testing.T) {
	got, err := Load(strings.NewReader("GME,GameStop Corp\nAMC,AMC Entertainment\n"), Options{FirstColumn: true})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Sorted(), []string{"AMC", "GME"}) {
		t.Errorf("got %v", got.Sorted())
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.csv"), Options{})
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.csv")
	if err := os.WriteFile(path, []byte("a\nthe\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !got.Contains("the") {
		t.Errorf("got %v", got)
	}
}

func TestLowered(t *testing.T) {
	got := NewSet("The", "AND", "or").Lowered()
	if !reflect.DeepEqual(got.Sorted(), []string{"and", "or", "the"}) {
		t.Errorf("got %v", got.Sorted())
	}
}
