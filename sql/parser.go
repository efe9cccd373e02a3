package sql

import (
	"encoding/hex"
	"strconv"

	"github.com/nickyhof/MandukyaDB/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	DeleteStatementType
	CreateTableStatementType
	DropTableStatementType
	DescribeStatementType
	ShowTablesStatementType
)

func (t StatementType) String() string {
	switch t {
	case SelectStatementType:
		return "SELECT"
	case InsertStatementType:
		return "INSERT"
	case DeleteStatementType:
		return "DELETE"
	case CreateTableStatementType:
		return "CREATE TABLE"
	case DropTableStatementType:
		return "DROP TABLE"
	case DescribeStatementType:
		return "DESCRIBE"
	case ShowTablesStatementType:
		return "SHOW TABLES"
	default:
		return "UNKNOWN"
	}
}

type Statement interface {
	Type() StatementType
}

// SelectStatement projects Columns from Table. An empty Columns list means
// every column in schema order.
type SelectStatement struct {
	Table   string
	Columns []string
	Where   *WhereCondition
}

type InsertStatement struct {
	Table  string
	Values []core.Value
}

type DeleteStatement struct {
	Table string
	Where *WhereCondition
}

type CreateTableStatement struct {
	Table   string
	Columns []core.Column
}

type DropTableStatement struct {
	Table string
}

type DescribeStatement struct {
	Table string
}

type ShowTablesStatement struct{}

// WhereCondition is the single comparison a WHERE clause may hold. Boolean
// combinators are not part of the grammar.
type WhereCondition struct {
	Column   string
	Operator WhereOperator
	Value    core.Value
}

type WhereOperator int

const (
	EqualsOperator WhereOperator = iota
	NotEqualsOperator
	LessThanOperator
	GreaterThanOperator
	LessThanOrEqualOperator
	GreaterThanOrEqualOperator
)

func (op WhereOperator) String() string {
	switch op {
	case EqualsOperator:
		return "="
	case NotEqualsOperator:
		return "!="
	case LessThanOperator:
		return "<"
	case GreaterThanOperator:
		return ">"
	case LessThanOrEqualOperator:
		return "<="
	case GreaterThanOrEqualOperator:
		return ">="
	default:
		return "?"
	}
}

func (c WhereCondition) String() string {
	return c.Column + " " + c.Operator.String() + " " + c.Value.Literal()
}

func (s SelectStatement) Type() StatementType {
	return SelectStatementType
}

func (s InsertStatement) Type() StatementType {
	return InsertStatementType
}

func (s DeleteStatement) Type() StatementType {
	return DeleteStatementType
}

func (s CreateTableStatement) Type() StatementType {
	return CreateTableStatementType
}

func (s DropTableStatement) Type() StatementType {
	return DropTableStatementType
}

func (s DescribeStatement) Type() StatementType {
	return DescribeStatementType
}

func (s ShowTablesStatement) Type() StatementType {
	return ShowTablesStatementType
}

type Parser struct {
	lexer *Lexer
}

func NewParser(sql string) *Parser {
	lexer := NewLexer(sql)
	return &Parser{lexer: lexer}
}

// Parse reads exactly one statement. A trailing semicolon is optional;
// anything after it is rejected.
func (parser *Parser) Parse() (Statement, error) {
	var (
		statement Statement
		err       error
	)

	token := parser.lexer.NextToken()
	switch token.Type {
	case Select:
		statement, err = ParseSelect(parser)
	case Insert:
		statement, err = ParseInsert(parser)
	case Delete:
		statement, err = ParseDelete(parser)
	case Create:
		statement, err = ParseCreate(parser)
	case Drop:
		statement, err = ParseDrop(parser)
	case Describe:
		statement, err = ParseDescribe(parser)
	case Show:
		statement, err = ParseShow(parser)
	case EOF, Semicolon:
		return nil, parser.errorAt(token, "empty statement")
	default:
		return nil, parser.errorAt(token, "unknown statement type")
	}
	if err != nil {
		return nil, err
	}

	token = parser.lexer.NextToken()
	if token.Type == Semicolon {
		token = parser.lexer.NextToken()
	}
	if token.Type != EOF {
		return nil, parser.errorAt(token, "unexpected token after end of statement")
	}
	return statement, nil
}

// Parse is shorthand for NewParser(sql).Parse().
func Parse(sql string) (Statement, error) {
	return NewParser(sql).Parse()
}

func (parser *Parser) errorAt(token Token, message string) error {
	if token.Type == Unknown && parser.lexer.Err() != "" {
		message = parser.lexer.Err()
	}
	return &core.SyntaxError{Pos: token.Pos, Token: token.Value, Message: message}
}

func (parser *Parser) expect(tokenType TokenType, message string) (Token, error) {
	token := parser.lexer.NextToken()
	if token.Type != tokenType {
		return token, parser.errorAt(token, message)
	}
	return token, nil
}

func ParseSelect(parser *Parser) (Statement, error) {
	var selectStatement SelectStatement

	token := parser.lexer.NextToken()
	if token.Type == Wildcard {
		selectStatement.Columns = []string{}
	} else {
		for {
			if token.Type != Identifier {
				return nil, parser.errorAt(token, "expected column name or '*'")
			}
			selectStatement.Columns = append(selectStatement.Columns, token.Value)

			if parser.lexer.PeekToken().Type != Comma {
				break
			}
			parser.lexer.NextToken()
			token = parser.lexer.NextToken()
		}
	}

	if _, err := parser.expect(From, "expected FROM"); err != nil {
		return nil, err
	}

	token, err := parser.expect(Identifier, "expected table name after FROM")
	if err != nil {
		return nil, err
	}
	selectStatement.Table = token.Value

	selectStatement.Where, err = parseOptionalWhere(parser)
	if err != nil {
		return nil, err
	}

	return selectStatement, nil
}

func parseOptionalWhere(parser *Parser) (*WhereCondition, error) {
	if parser.lexer.PeekToken().Type != Where {
		return nil, nil
	}
	parser.lexer.NextToken()

	condition, err := ParseWhere(parser)
	if err != nil {
		return nil, err
	}
	return &condition, nil
}

// ParseWhere parses `<column> <op> <literal>` after the WHERE keyword.
func ParseWhere(parser *Parser) (WhereCondition, error) {
	var condition WhereCondition

	token, err := parser.expect(Identifier, "expected column name in WHERE clause")
	if err != nil {
		return condition, err
	}
	condition.Column = token.Value

	token = parser.lexer.NextToken()
	switch token.Type {
	case Equals:
		condition.Operator = EqualsOperator
	case NotEquals:
		condition.Operator = NotEqualsOperator
	case LessThan:
		condition.Operator = LessThanOperator
	case GreaterThan:
		condition.Operator = GreaterThanOperator
	case LessThanOrEqual:
		condition.Operator = LessThanOrEqualOperator
	case GreaterThanOrEqual:
		condition.Operator = GreaterThanOrEqualOperator
	default:
		return condition, parser.errorAt(token, "expected comparison operator (=, !=, <, <=, >, >=)")
	}

	condition.Value, err = parseLiteral(parser)
	if err != nil {
		return condition, err
	}

	return condition, nil
}

func parseLiteral(parser *Parser) (core.Value, error) {
	token := parser.lexer.NextToken()
	switch token.Type {
	case String:
		return core.Text(token.Value), nil
	case Int:
		i, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return core.Value{}, parser.errorAt(token, "integer literal out of range")
		}
		return core.Integer(i), nil
	case Float:
		f, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return core.Value{}, parser.errorAt(token, "invalid real literal")
		}
		return core.Real(f), nil
	case Blob:
		b, err := hex.DecodeString(token.Value)
		if err != nil {
			return core.Value{}, parser.errorAt(token, "invalid blob literal")
		}
		return core.Blob(b), nil
	default:
		return core.Value{}, parser.errorAt(token, "expected literal value")
	}
}

func ParseInsert(parser *Parser) (Statement, error) {
	var insertStatement InsertStatement

	if _, err := parser.expect(Into, "expected INTO after INSERT"); err != nil {
		return nil, err
	}

	token, err := parser.expect(Identifier, "expected table name after INSERT INTO")
	if err != nil {
		return nil, err
	}
	insertStatement.Table = token.Value

	if _, err := parser.expect(Values, "expected VALUES"); err != nil {
		return nil, err
	}
	if _, err := parser.expect(ParenOpen, "expected '(' after VALUES"); err != nil {
		return nil, err
	}

	for {
		value, err := parseLiteral(parser)
		if err != nil {
			return nil, err
		}
		insertStatement.Values = append(insertStatement.Values, value)

		token = parser.lexer.NextToken()
		if token.Type == Comma {
			continue
		} else if token.Type == ParenClose {
			break
		} else {
			return nil, parser.errorAt(token, "expected ',' or ')' in values list")
		}
	}

	return insertStatement, nil
}

func ParseDelete(parser *Parser) (Statement, error) {
	var deleteStatement DeleteStatement

	if _, err := parser.expect(From, "expected FROM after DELETE"); err != nil {
		return nil, err
	}

	token, err := parser.expect(Identifier, "expected table name after FROM")
	if err != nil {
		return nil, err
	}
	deleteStatement.Table = token.Value

	deleteStatement.Where, err = parseOptionalWhere(parser)
	if err != nil {
		return nil, err
	}

	return deleteStatement, nil
}

func ParseCreate(parser *Parser) (Statement, error) {
	if _, err := parser.expect(TableIdentifier, "expected TABLE after CREATE"); err != nil {
		return nil, err
	}
	return ParseCreateTable(parser)
}

func ParseCreateTable(parser *Parser) (Statement, error) {
	var createTableStatement CreateTableStatement

	token, err := parser.expect(Identifier, "expected table name after TABLE")
	if err != nil {
		return nil, err
	}
	createTableStatement.Table = token.Value

	if _, err := parser.expect(ParenOpen, "expected '(' after table name"); err != nil {
		return nil, err
	}

	for {
		token, err = parser.expect(Identifier, "expected column name")
		if err != nil {
			return nil, err
		}
		columnName := token.Value

		token = parser.lexer.NextToken()
		columnType, ok := core.ParseColumnType(token.Value)
		if token.Type != Identifier || !ok {
			return nil, parser.errorAt(token, "expected column type (INTEGER, TEXT, REAL, BLOB)")
		}

		createTableStatement.Columns = append(createTableStatement.Columns, core.Column{
			Name: columnName,
			Type: columnType,
		})

		token = parser.lexer.NextToken()
		if token.Type == Comma {
			continue
		} else if token.Type == ParenClose {
			break
		} else {
			return nil, parser.errorAt(token, "expected ',' or ')' in column list")
		}
	}

	return createTableStatement, nil
}

func ParseDrop(parser *Parser) (Statement, error) {
	if _, err := parser.expect(TableIdentifier, "expected TABLE after DROP"); err != nil {
		return nil, err
	}

	token, err := parser.expect(Identifier, "expected table name after TABLE")
	if err != nil {
		return nil, err
	}

	return DropTableStatement{Table: token.Value}, nil
}

func ParseDescribe(parser *Parser) (Statement, error) {
	token, err := parser.expect(Identifier, "expected table name after DESCRIBE")
	if err != nil {
		return nil, err
	}
	return DescribeStatement{Table: token.Value}, nil
}

func ParseShow(parser *Parser) (Statement, error) {
	if _, err := parser.expect(TablesIdentifier, "expected TABLES after SHOW"); err != nil {
		return nil, err
	}
	return ShowTablesStatement{}, nil
}
