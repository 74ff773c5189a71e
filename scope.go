package searchable

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QueryFromStatement describes a GORM statement's FROM state as a Query.
//
// Sources are read in the order GORM renders them: a clause.From added with
// Clauses (aliased tables, declaration order), then a Table expression that
// carries an alias ("users u", "(?) AS t"), then the plain Table name. With none
// of these the model's own table is used. The model is Statement.Model, or
// Statement.Dest when Model is unset, as it is inside scopes run by Find.
func QueryFromStatement(stmt *gorm.Statement) (*Query, error) {
	if stmt == nil {
		return nil, ErrMissingQuery
	}

	q := &Query{Model: stmt.Model}
	if q.Model == nil {
		q.Model = stmt.Dest
	}
	if stmt.DB != nil && stmt.Config != nil {
		q.Naming = stmt.NamingStrategy
	}

	if c, ok := stmt.Clauses["FROM"]; ok {
		if from, ok := c.Expression.(clause.From); ok && len(from.Tables) > 0 {
			for _, table := range from.Tables {
				q.From = append(q.From, FromEntry{Alias: table.Alias, Table: table.Name})
			}
			return q, nil
		}
	}

	var tableExpr string
	if stmt.TableExpr != nil {
		tableExpr = strings.TrimSpace(stmt.TableExpr.SQL)
	}

	switch {
	case strings.ContainsAny(tableExpr, " \t\n"):
		q.From = []FromEntry{{Table: tableExpr}}
	case stmt.Table != "":
		q.From = []FromEntry{{Table: stmt.Table}}
	}

	return q, nil
}

// Scope returns a GORM scope restricting the query to ids.
// Configuration errors are added to the *gorm.DB and surface from the finisher.
func Scope(ids []interface{}) func(*gorm.DB) *gorm.DB {
	return scope(ids, false)
}

// OrderedScope is Scope plus an ORDER BY keeping rows in the order of ids.
func OrderedScope(ids []interface{}) func(*gorm.DB) *gorm.DB {
	return scope(ids, true)
}

func scope(ids []interface{}, ordered bool) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		expr, err := FromStatement(tx.Statement, ids)
		if err != nil {
			_ = tx.AddError(err)
			return tx
		}

		tx = tx.Where(expr.Condition())
		if ordered {
			tx = tx.Order(clause.OrderBy{Expression: expr.OrderByIDs()})
		}
		return tx
	}
}

// FromStatement builds an Expression for a GORM statement and ids.
func FromStatement(stmt *gorm.Statement, ids []interface{}) (*Expression, error) {
	if len(ids) == 0 {
		return nil, ErrMissingIDs
	}
	q, err := QueryFromStatement(stmt)
	if err != nil {
		return nil, err
	}
	return New(q, ids)
}
