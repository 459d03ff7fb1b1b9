package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func write(t *testing.T, dir, name, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseSingleFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "page-01.csv", "a,b,c\n1,2,3\n")
	tables, diags := Parse(filepath.Join(dir, "page-01.csv"))
	if len(tables) != 1 || len(diags.Warnings) != 0 {
		t.Fatalf("tables=%d warnings=%v", len(tables), diags.Warnings)
	}
	if tables[0].Name != "page-01" {
		t.Fatalf("name = %q", tables[0].Name)
	}
	if got := tables[0].Row(0); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("row 0 = %v", got)
	}
}

func TestParseDirectoryKeepsPageOrder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "page-02.csv", "second\n")
	write(t, dir, "page-01.csv", "first\n")
	write(t, dir, "notes.txt", "ignore me")
	tables, _ := Parse(dir)
	if len(tables) != 2 {
		t.Fatalf("tables = %d", len(tables))
	}
	if tables[0].Name != "page-01" || tables[1].Name != "page-02" {
		t.Fatalf("order: %s, %s", tables[0].Name, tables[1].Name)
	}
}

func TestParseSniffsDelimiters(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name, data string
	}{
		{"semi.csv", "a;b;c\n1;2;3\n"},
		{"tabs.tsv", "a\tb\tc\n1\t2\t3\n"},
		{"pipe.csv", "a|b|c\n1|2|3\n"},
	}
	for _, c := range cases {
		write(t, dir, c.name, c.data)
		tables, _ := Parse(filepath.Join(dir, c.name))
		if len(tables) != 1 {
			t.Fatalf("%s: tables = %d", c.name, len(tables))
		}
		if w := tables[0].Width(); w != 3 {
			t.Fatalf("%s: width = %d, want 3", c.name, w)
		}
	}
}

func TestParseRaggedRowsPadded(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "ragged.csv", "a,b,c\n1\n")
	tables, _ := Parse(dir)
	if len(tables) != 1 {
		t.Fatalf("tables = %d", len(tables))
	}
	if got := tables[0].Row(1); !reflect.DeepEqual(got, []string{"1", "", ""}) {
		t.Fatalf("row 1 = %v", got)
	}
}

func TestParseEmptyDirWarns(t *testing.T) {
	tables, diags := Parse(t.TempDir())
	if len(tables) != 0 || len(diags.Warnings) == 0 {
		t.Fatalf("tables=%d warnings=%v", len(tables), diags.Warnings)
	}
}
