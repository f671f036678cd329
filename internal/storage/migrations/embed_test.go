package migrations

import (
	"testing"
	"testing/fstest"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_initial.sql", 1, false},
		{"010_review_cards.sql", 10, false},
		{"notaversion.sql", 0, true},
		{"abc_initial.sql", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVersion(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVersion(%q) = %d; want %d", tt.name, got, tt.want)
		}
	}
}

func TestLoadAndPending(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":   {Data: []byte("SELECT 10;")},
		"002_second.sql":  {Data: []byte("SELECT 2;")},
		"001_initial.sql": {Data: []byte("SELECT 1;")},
		"README.md":       {Data: []byte("notes")},
		"draft.sql":       {Data: []byte("SELECT 0;")},
	}
	all, err := Load(fsys)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(all) != 3 || all[0].Version != 1 || all[1].Version != 2 || all[2].Version != 10 {
		t.Fatalf("Load() = %+v", all)
	}
	if all[2].SQL != "SELECT 10;" {
		t.Errorf("SQL = %q", all[2].SQL)
	}

	if got := Pending(all, 2); len(got) != 1 || got[0].Name != "010_later.sql" {
		t.Errorf("Pending(2) = %+v", got)
	}
	if got := Pending(all, 10); got != nil {
		t.Errorf("Pending(10) = %+v; want none", got)
	}
}

func TestEmbeddedSchemas(t *testing.T) {
	for name, load := range map[string]func() ([]Migration, error){"postgres": Postgres, "sqlite": SQLite} {
		all, err := load()
		if err != nil || len(all) == 0 || all[0].Version != 1 {
			t.Errorf("%s migrations = %v, %v", name, all, err)
		}
	}
}
