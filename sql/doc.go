// Package sql provides SQL lexing and parsing for MandukyaDB.
//
// The package includes a lexer that tokenizes SQL strings and a parser
// that produces statement trees for SQL statements.
//
// # Lexer Usage
//
//	lexer := sql.NewLexer("SELECT * FROM heroes")
//	for {
//	    token := lexer.NextToken()
//	    if token.Type == sql.EOF {
//	        break
//	    }
//	    fmt.Printf("Token: %s at %d\n", token, token.Pos)
//	}
//
// # Parser Usage
//
//	statement, err := sql.Parse("SELECT name FROM heroes WHERE strength > 90;")
//	if err != nil {
//	    log.Fatal(err) // *core.SyntaxError
//	}
//
// # Supported Statements
//
//   - CREATE TABLE name (col TYPE, ...)
//   - INSERT INTO name VALUES (literal, ...)
//   - SELECT * | col, ... FROM name [WHERE col op literal]
//   - DELETE FROM name [WHERE col op literal]
//   - DROP TABLE name
//   - DESCRIBE name / DESC name
//   - SHOW TABLES
//
// WHERE holds exactly one comparison (=, !=, <>, <, <=, >, >=); AND and OR
// are not part of the grammar. Keywords match case-insensitively while
// identifiers are case-sensitive. String literals use single quotes with ''
// for an embedded quote; X'..' is a blob literal.
package sql
