package query

import (
	"errors"
	"testing"
)

func TestSingleStatementAcceptsOneStatement(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{name: "plain", sql: "SELECT 1", want: "SELECT 1"},
		{name: "trailing semicolons", sql: "  SELECT 1 ; ;\n", want: "SELECT 1"},
		{name: "trailing comment", sql: "SELECT 1; -- done", want: "SELECT 1"},
		{name: "trailing block comment", sql: "SELECT 1;\n/* end */", want: "SELECT 1"},
		{name: "semicolon in string", sql: "SELECT 'a;b' AS v", want: "SELECT 'a;b' AS v"},
		{name: "doubled quote", sql: "SELECT 'it''s; fine'", want: "SELECT 'it''s; fine'"},
		{name: "quoted identifier", sql: `SELECT "x;y" FROM t`, want: `SELECT "x;y" FROM t`},
		{name: "backtick identifier", sql: "SELECT `p.d;t`.a FROM t", want: "SELECT `p.d;t`.a FROM t"},
		{name: "line comment", sql: "SELECT 1 -- a; b\nFROM t", want: "SELECT 1 -- a; b\nFROM t"},
		{name: "block comment", sql: "SELECT /* a; b */ 1", want: "SELECT /* a; b */ 1"},
		{name: "dollar quoted", sql: "SELECT $$a;b$$", want: "SELECT $$a;b$$"},
		{name: "tagged dollar quoted", sql: "SELECT $fn$x; DROP TABLE t$fn$", want: "SELECT $fn$x; DROP TABLE t$fn$"},
		{name: "placeholder", sql: "SELECT * FROM t WHERE a = $1", want: "SELECT * FROM t WHERE a = $1"},
		{name: "leading comment part", sql: "-- header\n;\nSELECT 2", want: "SELECT 2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SingleStatement(tc.sql)
			if err != nil {
				t.Fatalf("SingleStatement(%q) error = %v", tc.sql, err)
			}
			if got != tc.want {
				t.Fatalf("SingleStatement(%q) = %q, want %q", tc.sql, got, tc.want)
			}
		})
	}
}

func TestSingleStatementRejectsSeveralStatements(t *testing.T) {
	for _, sqlText := range []string{
		"SELECT 1; DROP TABLE marketing_campaigns",
		"SELECT 1;\nDELETE FROM ad_performance;",
		"SELECT 'a'; SELECT 'b'",
		"SELECT 1 -- note\n; UPDATE t SET a = 1",
		"SELECT 1) AS q; DROP TABLE t; SELECT * FROM (SELECT 1",
		"SELECT $1; DROP TABLE t",
	} {
		if _, err := SingleStatement(sqlText); !errors.Is(err, ErrMultipleStatements) {
			t.Fatalf("SingleStatement(%q) error = %v, want ErrMultipleStatements", sqlText, err)
		}
	}
}

func TestSingleStatementBlank(t *testing.T) {
	for _, sqlText := range []string{"", "  ;", " ; ; ", "-- only a comment", "/* nothing */;"} {
		if _, err := SingleStatement(sqlText); !errors.Is(err, ErrEmptySQL) {
			t.Fatalf("SingleStatement(%q) error = %v, want ErrEmptySQL", sqlText, err)
		}
	}
}
