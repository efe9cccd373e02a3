package sql

import "strconv"

type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

type TokenType int

const (
	Identifier TokenType = iota
	TableIdentifier
	TablesIdentifier
	Show
	Wildcard
	String
	Int
	Float
	Blob
	Comma
	Semicolon
	ParenOpen
	ParenClose
	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Select
	From
	Where
	Create
	Drop
	Insert
	Delete
	Into
	Values
	Describe
	EOF
	Unknown
)

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case TableIdentifier:
		return "TableIdentifier"
	case TablesIdentifier:
		return "TablesIdentifier"
	case Show:
		return "Show"
	case Wildcard:
		return "Wildcard"
	case String:
		return "String(" + token.Value + ")"
	case Int:
		return "Int(" + token.Value + ")"
	case Float:
		return "Float(" + token.Value + ")"
	case Blob:
		return "Blob(" + token.Value + ")"
	case Comma:
		return "Comma"
	case Semicolon:
		return "Semicolon"
	case ParenOpen:
		return "ParenOpen"
	case ParenClose:
		return "ParenClose"
	case Equals:
		return "Equals"
	case NotEquals:
		return "NotEquals"
	case LessThan:
		return "LessThan"
	case GreaterThan:
		return "GreaterThan"
	case LessThanOrEqual:
		return "LessThanOrEqual"
	case GreaterThanOrEqual:
		return "GreaterThanOrEqual"
	case Select:
		return "Select"
	case From:
		return "From"
	case Where:
		return "Where"
	case Create:
		return "Create"
	case Drop:
		return "Drop"
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	case Into:
		return "Into"
	case Values:
		return "Values"
	case Describe:
		return "Describe"
	case EOF:
		return "EOF"
	default:
		return "Unknown(" + token.Value + ")"
	}
}

// Lexer splits a single SQL statement into tokens. Every token records the
// byte offset it started at so parse errors can point at it.
type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
	err          string
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() Token {
	var token Token

	lexer.skipWhitespace()
	start := lexer.position

	switch {
	case lexer.ch == 0 && lexer.position >= len(lexer.sql):
		return Token{Type: EOF, Pos: len(lexer.sql)}
	case lexer.ch == ',':
		token = Token{Type: Comma, Value: ","}
	case lexer.ch == ';':
		token = Token{Type: Semicolon, Value: ";"}
	case lexer.ch == '(':
		token = Token{Type: ParenOpen, Value: "("}
	case lexer.ch == ')':
		token = Token{Type: ParenClose, Value: ")"}
	case lexer.ch == '*':
		token = Token{Type: Wildcard, Value: "*"}
	case lexer.ch == '\'':
		str, ok := lexer.readString()
		if !ok {
			return lexer.illegal(start, "unterminated string literal")
		}
		return Token{Type: String, Value: str, Pos: start}
	case (lexer.ch == 'X' || lexer.ch == 'x') && lexer.peekChar() == '\'':
		lexer.readChar()
		str, ok := lexer.readString()
		if !ok {
			return lexer.illegal(start, "unterminated blob literal")
		}
		if !isHex(str) {
			return lexer.illegal(start, "blob literal must contain an even number of hex digits")
		}
		return Token{Type: Blob, Value: str, Pos: start}
	case isOperator(lexer.ch):
		operator := lexer.readOperator()
		token = Token{Value: operator, Pos: start}
		switch operator {
		case "=":
			token.Type = Equals
		case "!=", "<>":
			token.Type = NotEquals
		case "<":
			token.Type = LessThan
		case ">":
			token.Type = GreaterThan
		case "<=":
			token.Type = LessThanOrEqual
		case ">=":
			token.Type = GreaterThanOrEqual
		default:
			token.Type = Unknown
		}
		return token
	case isDigit(lexer.ch) || (lexer.ch == '-' && isDigit(lexer.peekChar())):
		sign := ""
		if lexer.ch == '-' {
			sign = "-"
			lexer.readChar()
		}
		num := lexer.readNumber()
		// A decimal point makes it a REAL
		if lexer.ch == '.' {
			lexer.readChar()
			decimal := lexer.readNumber()
			return Token{Type: Float, Value: sign + num + "." + decimal, Pos: start}
		}
		return Token{Type: Int, Value: sign + num, Pos: start}
	case isIdentifierStart(lexer.ch):
		literal := lexer.readIdentifier()
		return Token{Type: lookupIdentifier(literal), Value: literal, Pos: start}
	default:
		token = Token{Type: Unknown, Value: string(lexer.ch)}
	}

	token.Pos = start
	lexer.readChar()
	return token
}

// illegal consumes the rest of the input and returns an Unknown token whose
// reason is available from Err.
func (lexer *Lexer) illegal(start int, reason string) Token {
	lexer.err = reason
	value := lexer.sql[start:]
	lexer.position = len(lexer.sql)
	lexer.readPosition = len(lexer.sql) + 1
	lexer.ch = 0
	return Token{Type: Unknown, Value: value, Pos: start}
}

// Err describes the last malformed literal the lexer rejected.
func (lexer *Lexer) Err() string {
	return lexer.err
}

func (lexer *Lexer) PeekToken() Token {
	// Save current state
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch
	savedErr := lexer.err

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh
	lexer.err = savedErr

	return token
}

func (lexer *Lexer) skipWhitespace() {
	for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
		lexer.readChar()
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isAlphaNumeric(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString reads a single-quoted literal; a doubled quote stands for one
// embedded quote. The closing quote is consumed.
func (lexer *Lexer) readString() (string, bool) {
	lexer.readChar() // skip opening quote
	var buf []byte
	for {
		if lexer.ch == 0 && lexer.position >= len(lexer.sql) {
			return "", false
		}
		if lexer.ch == '\'' {
			if lexer.peekChar() != '\'' {
				lexer.readChar()
				return string(buf), true
			}
			lexer.readChar()
		}
		buf = append(buf, lexer.ch)
		lexer.readChar()
	}
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isIdentifierStart(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isAlphaNumeric(ch byte) bool {
	return isIdentifierStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if _, err := strconv.ParseUint(s[i:i+1], 16, 8); err != nil {
			return false
		}
	}
	return true
}

// lookupIdentifier matches keywords case-insensitively; anything else is an
// identifier and keeps its original case.
func lookupIdentifier(id string) TokenType {
	switch toUpper(id) {
	case "TABLE":
		return TableIdentifier
	case "TABLES":
		return TablesIdentifier
	case "SHOW":
		return Show
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "CREATE":
		return Create
	case "DROP":
		return Drop
	case "INSERT":
		return Insert
	case "DELETE":
		return Delete
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "DESCRIBE", "DESC":
		return Describe
	default:
		return Identifier
	}
}

// toUpper converts a string to uppercase without allocating for ASCII strings
func toUpper(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 'a' && s[i] <= 'z' {
			b := make([]byte, len(s))
			for j := 0; j < len(s); j++ {
				if s[j] >= 'a' && s[j] <= 'z' {
					b[j] = s[j] - 32
				} else {
					b[j] = s[j]
				}
			}
			return string(b)
		}
	}
	return s
}

func tokenize(sql string) []Token {
	lexer := NewLexer(sql)

	var tokens []Token

	for {
		token := lexer.NextToken()
		if token.Type == EOF {
			return append(tokens, token)
		}
		tokens = append(tokens, token)
	}
}
