package alias

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		expr      string
		wantAlias string
		wantOK    bool
	}{
		{name: "bare table", expr: "user_table", wantOK: false},
		{name: "table and alias", expr: "user_table alias_token", wantAlias: "alias_token", wantOK: true},
		{name: "as keyword", expr: "user_table AS u", wantAlias: "u", wantOK: true},
		{name: "bracketed alias", expr: "{{%user}} {{u}}", wantAlias: "{{u}}", wantOK: true},
		{name: "extra whitespace", expr: "user_table    u", wantAlias: "u", wantOK: true},
		{name: "tab separated", expr: "user_table\tu", wantAlias: "u", wantOK: true},
		{name: "last of many tokens", expr: "schema.user_table AS inner u2", wantAlias: "u2", wantOK: true},
		{name: "subquery", expr: "(SELECT * FROM users) t", wantAlias: "t", wantOK: true},
		{name: "quoted multi word", expr: `"order items"`, wantOK: false},
		{name: "trailing space", expr: "user_table u ", wantOK: false},
		{name: "empty", expr: "", wantOK: false},
		{name: "leading whitespace only", expr: " u", wantAlias: "u", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.expr)
			if ok != tt.wantOK {
				t.Fatalf("Parse(%q) ok = %v, want %v", tt.expr, ok, tt.wantOK)
			}
			if got != tt.wantAlias {
				t.Errorf("Parse(%q) = %q, want %q", tt.expr, got, tt.wantAlias)
			}
		})
	}
}

func TestResolveFallsBackToExpression(t *testing.T) {
	if got := Resolve("user_table"); got != "user_table" {
		t.Errorf("Resolve(user_table) = %q, want %q", got, "user_table")
	}
	if got := Resolve("user_table t"); got != "t" {
		t.Errorf("Resolve(user_table t) = %q, want %q", got, "t")
	}
	if got := Resolve(`"order items"`); got != `"order items"` {
		t.Errorf("Resolve(quoted) = %q, want expression unchanged", got)
	}
}

func TestUnwrap(t *testing.T) {
	tests := map[string]string{
		"{{u}}":      "u",
		"u":          "u",
		"{{}}":       "{{}}",
		"{{u":        "{{u",
		"user_tbl}}": "user_tbl}}",
	}
	for in, want := range tests {
		if got := Unwrap(in); got != want {
			t.Errorf("Unwrap(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExpand(t *testing.T) {
	quote := func(name string) string { return `"` + name + `"` }

	tests := map[string]string{
		"user_table {{u}}":         `user_table "u"`,
		"{{user}} {{u}}":           `"user" "u"`,
		"user_table u":             "user_table u",
		"{{}} x":                   "{{}} x",
		"(SELECT 1) {{sub_query}}": `(SELECT 1) "sub_query"`,
	}
	for in, want := range tests {
		if got := Expand(in, quote); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}
