package diff

import (
	"strings"
	"testing"

	"envsync/internal/exclude"
)

const sampleListing = "" +
	"d\t4096\t1700000000.0000000000\t\t\n" +
	"f\t11\t1700000001.5000000000\ta.txt\t\n" +
	"d\t4096\t1700000002.0000000000\tsub\t\n" +
	"f\t4\t1700000003.0000000000\tsub/b.txt\t\n" +
	"l\t6\t1700000004.0000000000\tlink\ttarget\n" +
	"f\t2\t1700000005.0000000000\tbuild/out.log\t\n"

func TestParseFindListing(t *testing.T) {
	entries, err := parseFindListing(sampleListing, exclude.Default())
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := entries[""]; ok {
		t.Error("root entry should be skipped")
	}

	a, ok := entries["a.txt"]
	if !ok {
		t.Fatal("a.txt missing")
	}
	if a.Type != TypeFile || a.Size != 11 {
		t.Errorf("a.txt = %+v", a)
	}
	if a.ModTime.Unix() != 1700000001 {
		t.Errorf("a.txt mtime = %v", a.ModTime)
	}

	if sub, ok := entries["sub"]; !ok || sub.Type != TypeDir {
		t.Errorf("sub = %+v, ok=%v", sub, ok)
	}

	link, ok := entries["link"]
	if !ok || link.Type != TypeSymlink || link.LinkTarget != "target" {
		t.Errorf("link = %+v, ok=%v", link, ok)
	}
}

func TestParseFindListingAppliesPolicy(t *testing.T) {
	policy := exclude.Default().WithIgnoreRules("build/\n")
	entries, err := parseFindListing(sampleListing, policy)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := entries["build/out.log"]; ok {
		t.Error("ignored path should be filtered from the listing")
	}
}

func TestParseFindListingMalformed(t *testing.T) {
	if _, err := parseFindListing("f\tonly-two-fields\n", nil); err == nil {
		t.Error("expected error for malformed line")
	}
	if _, err := parseFindListing("f\tNaN\t1.0\tx\t\n", nil); err == nil {
		t.Error("expected error for malformed size")
	}
}

func TestMergeChecksums(t *testing.T) {
	entries := map[string]FileEntry{
		"a.txt":     {Path: "a.txt", Type: TypeFile},
		"sub/b.txt": {Path: "sub/b.txt", Type: TypeFile},
	}

	sum := strings.Repeat("ab", 32)
	out := sum + "  ./a.txt\n" + sum + "  ./sub/b.txt\n"
	if err := mergeChecksums(out, entries); err != nil {
		t.Fatal(err)
	}

	if entries["a.txt"].Checksum != sum {
		t.Errorf("a.txt checksum = %q", entries["a.txt"].Checksum)
	}
	if entries["sub/b.txt"].Checksum != sum {
		t.Errorf("sub/b.txt checksum = %q", entries["sub/b.txt"].Checksum)
	}
}

func TestMergeChecksumsMalformed(t *testing.T) {
	if err := mergeChecksums("nonsense line\n", map[string]FileEntry{}); err == nil {
		t.Error("expected error for malformed line")
	}
}
