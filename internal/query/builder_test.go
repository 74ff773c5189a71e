package query

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for testing
	"gorm.io/gorm/clause"
)

func setupQueryBuilderTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT
		)
	`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO products (id, name, category) VALUES
		(1, 'Product 1', 'A'),
		(2, 'Product 2', 'B'),
		(3, 'Product 3', 'A'),
		(4, 'Product 4', 'C')
	`)
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}

	return db
}

func TestRenderInCondition(t *testing.T) {
	in := clause.IN{Column: clause.Column{Table: "u", Name: "uid"}, Values: []interface{}{"a", "b"}}

	tests := []struct {
		dialect string
		want    string
	}{
		{dialect: "sqlite", want: `"u"."uid" IN (?,?)`},
		{dialect: "postgres", want: `"u"."uid" IN ($1,$2)`},
		{dialect: "mysql", want: "`u`.`uid` IN (?,?)"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			sql, args, err := Render(tt.dialect, in)
			if err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if sql != tt.want {
				t.Errorf("Expected SQL %q, got %q", tt.want, sql)
			}
			if !reflect.DeepEqual(args, []interface{}{"a", "b"}) {
				t.Errorf("Expected args [a b], got %v", args)
			}
		})
	}
}

func TestRenderSingleValueUsesEquality(t *testing.T) {
	in := clause.IN{Column: clause.Column{Table: "user", Name: "id"}, Values: []interface{}{7}}

	sql, args, err := Render("sqlite", in)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if sql != `"user"."id" = ?` {
		t.Errorf("Expected SQL %q, got %q", `"user"."id" = ?`, sql)
	}
	if len(args) != 1 || args[0] != 7 {
		t.Errorf("Expected args [7], got %v", args)
	}
}

func TestRenderEscapesQuotes(t *testing.T) {
	in := clause.IN{Column: clause.Column{Table: `we"ird`, Name: "order"}, Values: []interface{}{1, 2}}

	sql, _, err := Render("sqlite", in)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := `"we""ird"."order" IN (?,?)`
	if sql != want {
		t.Errorf("Expected SQL %q, got %q", want, sql)
	}
}

func TestRenderExprWithColumnVar(t *testing.T) {
	expr := clause.Expr{
		SQL:  "CASE ? WHEN ? THEN 0 WHEN ? THEN 1 END",
		Vars: []interface{}{clause.Column{Table: "p", Name: "id"}, 3, 1},
	}

	sql, args, err := Render("postgres", expr)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := `CASE "p"."id" WHEN $1 THEN 0 WHEN $2 THEN 1 END`
	if sql != want {
		t.Errorf("Expected SQL %q, got %q", want, sql)
	}
	if !reflect.DeepEqual(args, []interface{}{3, 1}) {
		t.Errorf("Expected args [3 1], got %v", args)
	}
}

func TestSelectBuilder_AliasedSource(t *testing.T) {
	sb := NewSelectBuilder("sqlite").
		From("products", "p").
		Select("p.id", "p.name").
		Where(clause.IN{Column: clause.Column{Table: "p", Name: "id"}, Values: []interface{}{1, 3}})

	sql, args, err := sb.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	expectedSQL := `SELECT p.id, p.name FROM "products" "p" WHERE "p"."id" IN (?,?)`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
	if len(args) != 2 {
		t.Fatalf("Expected 2 args, got %d", len(args))
	}
}

func TestSelectBuilder_RawSource(t *testing.T) {
	sb := NewSelectBuilder("sqlite").
		FromRaw("products AS x").
		Where(clause.IN{Column: clause.Column{Table: "x", Name: "category"}, Values: []interface{}{"A", "C"}}).
		OrderBy(clause.Expr{SQL: "? DESC", Vars: []interface{}{clause.Column{Table: "x", Name: "id"}}}).
		Limit(2)

	sql, _, err := sb.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	expectedSQL := `SELECT * FROM products AS x WHERE "x"."category" IN (?,?) ORDER BY "x"."id" DESC LIMIT 2`
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
}

func TestSelectBuilder_QueryContext(t *testing.T) {
	db := setupQueryBuilderTestDB(t)

	sb := NewSelectBuilder("sqlite").
		From("products", "p").
		Select("p.id").
		Where(clause.IN{Column: clause.Column{Table: "p", Name: "id"}, Values: []interface{}{2, 4, 9}}).
		OrderBy(clause.Expr{SQL: "?", Vars: []interface{}{clause.Column{Table: "p", Name: "id"}}})

	rows, err := sb.QueryContext(context.Background(), db)
	if err != nil {
		t.Fatalf("QueryContext failed: %v", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error: %v", err)
	}

	if !reflect.DeepEqual(ids, []int{2, 4}) {
		t.Errorf("Expected ids [2 4], got %v", ids)
	}
}

func TestSelectBuilder_CountContext(t *testing.T) {
	db := setupQueryBuilderTestDB(t)

	sb := NewSelectBuilder("sqlite").
		FromRaw("products prod").
		Where(clause.IN{Column: clause.Column{Table: "prod", Name: "category"}, Values: []interface{}{"A"}})

	count, err := sb.CountContext(context.Background(), db)
	if err != nil {
		t.Fatalf("CountContext failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestBuilderAddError(t *testing.T) {
	b := NewBuilder("sqlite", "")
	if err := b.Err(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	first := b.AddError(sql.ErrNoRows)
	_ = b.AddError(nil)
	if first != sql.ErrNoRows {
		t.Errorf("AddError should return its argument")
	}
	if b.Err() != sql.ErrNoRows {
		t.Errorf("Expected first recorded error, got %v", b.Err())
	}
}

func TestSelectBuilder_RawSourceExpandsMarkers(t *testing.T) {
	sb := NewSelectBuilder("mysql").
		FromRaw("{{products}} {{p}}").
		Where(clause.IN{Column: clause.Column{Table: "p", Name: "id"}, Values: []interface{}{1, 2}})

	sql, _, err := sb.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	expectedSQL := "SELECT * FROM `products` `p` WHERE `p`.`id` IN (?,?)"
	if sql != expectedSQL {
		t.Errorf("Expected SQL %q, got %q", expectedSQL, sql)
	}
}
