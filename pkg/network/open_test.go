package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-sarnet/pkg/stack"
)

func TestOpenSourceFlat(t *testing.T) {
	dir := t.TempDir()
	plPath := filepath.Join(dir, "ifgram_list.txt")
	os.WriteFile(plPath, []byte("20070101_20070201\n"), 0o644)

	src, stk, err := OpenSource(plPath, "bl_list.txt")
	if err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	if stk != nil {
		t.Error("Flat source must not open a container")
	}
	if src.PairListPath != plPath || src.BaselineListPath != "bl_list.txt" {
		t.Errorf("Source = %+v", src)
	}
}

func TestOpenSourceStructured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ifgramStack.stk")
	w := stack.NewWriter(path, stack.KindIfgramStack)
	w.PutStringList(stack.SectionDate12, []string{"20070101_20070201"})
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to write container: %v", err)
	}

	src, stk, err := OpenSource(path, "")
	if err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	if stk == nil {
		t.Fatal("Expected an open container")
	}
	defer stk.Close()
	if src.Stack == nil || src.Stack.Kind() != stack.KindIfgramStack {
		t.Errorf("Source = %+v", src)
	}
}

func TestOpenSourceMissingContainer(t *testing.T) {
	if _, _, err := OpenSource(filepath.Join(t.TempDir(), "missing.stk"), ""); err == nil {
		t.Error("Expected error for missing container")
	}
}
