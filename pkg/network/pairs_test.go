package network

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"20070106", "20070106", false},
		{"070106", "20070106", false},
		{"960321", "19960321", false},
		{"310101", "19310101", false}, // two-digit years above 30 are 19xx
		{"300101", "20300101", false},
		{"2007", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeDate(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeDate(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeDate(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizePair(t *testing.T) {
	cases := map[string]string{
		"20070709_20100901": "20070709_20100901",
		"070709-100901":     "20070709_20100901",
		"070709_100901":     "20070709_20100901",
	}
	for in, want := range cases {
		got, err := NormalizePair(in)
		if err != nil {
			t.Errorf("NormalizePair(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizePair(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := NormalizePair("20070709"); err == nil {
		t.Error("Expected error for token without separator")
	}
}

func TestReadBaselineList(t *testing.T) {
	content := `# createBaselineList output
070106     0.0   0.03  0.0000000  0.00000000000 2155.2 /scratch/SLC/070106/
070709  2631.9   0.07  0.0000000  0.00000000000 2155.2 /scratch/SLC/070709/

070824  2787.3   0.07  0.0000000  0.00000000000 2155.2 /scratch/SLC/070824/
`
	path := filepath.Join(t.TempDir(), "bl_list.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	dates, pbase, err := ReadBaselineList(path)
	if err != nil {
		t.Fatalf("ReadBaselineList failed: %v", err)
	}
	if len(dates) != 3 || len(pbase) != 3 {
		t.Fatalf("Got %d dates, %d baselines, want 3 each", len(dates), len(pbase))
	}
	if dates[0] != "20070106" || dates[2] != "20070824" {
		t.Errorf("dates = %v", dates)
	}
	if pbase[1] != 2631.9 {
		t.Errorf("pbase[1] = %f, want 2631.9", pbase[1])
	}
}

func TestReadPairList(t *testing.T) {
	content := `# pairs from select_network
20070709_20100901
20070709_20101017  0.83
070824-071009
`
	path := filepath.Join(t.TempDir(), "ifgram_list.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ReadPairList(path)
	if err != nil {
		t.Fatalf("ReadPairList failed: %v", err)
	}
	want := []string{"20070709_20100901", "20070709_20101017", "20070824_20071009"}
	if len(pairs) != len(want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pairs[%d] = %q, want %q", i, pairs[i], want[i])
		}
	}
}

func TestWritePairList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "date12List.txt")
	pairs := []string{"20070709_20100901", "20070824_20071009"}
	if err := WritePairList(path, pairs); err != nil {
		t.Fatalf("WritePairList failed: %v", err)
	}

	got, err := ReadPairList(path)
	if err != nil {
		t.Fatalf("Re-reading written list failed: %v", err)
	}
	if len(got) != 2 || got[0] != pairs[0] || got[1] != pairs[1] {
		t.Errorf("Round trip = %v, want %v", got, pairs)
	}
}
