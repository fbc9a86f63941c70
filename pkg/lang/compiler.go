package lang

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rmay/ettext/pkg/vm"
)

// Precedence climbs the same ladder the reference grammar documents:
// Assignment < Or < And < Equality < Comparison < Unary < Call.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   Precedence
}

var rules map[TokenType]parseRule

func init() {
	rules = map[TokenType]parseRule{
		TokenLeftParen:    {(*Compiler).grouping, (*Compiler).call, PrecCall},
		TokenMinus:        {(*Compiler).unary, nil, PrecNone},
		TokenNumber:       {(*Compiler).number, nil, PrecNone},
		TokenString:       {(*Compiler).string, nil, PrecNone},
		TokenNull:         {(*Compiler).literal, nil, PrecNone},
		TokenTrue:         {(*Compiler).literal, nil, PrecNone},
		TokenFalse:        {(*Compiler).literal, nil, PrecNone},
		TokenNot:          {(*Compiler).unary, nil, PrecNone},
		TokenOr:           {nil, (*Compiler).or_, PrecOr},
		TokenAnd:          {nil, (*Compiler).and_, PrecAnd},
		TokenEqualEqual:   {nil, (*Compiler).binary, PrecEquality},
		TokenNotEqual:     {nil, (*Compiler).binary, PrecEquality},
		TokenLess:         {nil, (*Compiler).binary, PrecComparison},
		TokenLessEqual:    {nil, (*Compiler).binary, PrecComparison},
		TokenGreater:      {nil, (*Compiler).binary, PrecComparison},
		TokenGreaterEqual: {nil, (*Compiler).binary, PrecComparison},
		TokenIdentifier:   {(*Compiler).variable, nil, PrecNone},
		TokenFnIdentifier: {(*Compiler).nativeFn, nil, PrecNone},
		TokenPass:         {(*Compiler).pass, nil, PrecNone},
	}
}

func getRule(t TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, PrecNone}
}

type local struct {
	name  Token
	depth int
}

// Compiler runs a single pass over the token stream, emitting bytecode
// directly into bc: there is no intermediate AST.
type Compiler struct {
	vm     *vm.VM
	bc     *vm.Bytecode
	source string
	lexer  *Lexer

	previous Token
	current  Token

	hadError  bool
	panicMode bool

	locals     []local
	scopeDepth int

	trace bool
}

// Compile scans and compiles source in one pass, returning the resulting
// bytecode. A non-nil error means a syntax error was reported; partial
// bytecode is still returned for disassembly-based debugging.
func Compile(source string, v *vm.VM, trace ...bool) (*vm.Bytecode, error) {
	traceEnabled := false
	if len(trace) > 0 {
		traceEnabled = trace[0]
	}
	c := &Compiler{
		vm:     v,
		bc:     vm.NewBytecode(),
		source: source,
		lexer:  NewLexer(source, traceEnabled),
		trace:  traceEnabled,
	}
	c.bc.Source = source
	c.advance()
	for !c.check(TokenEOF) {
		c.declaration()
	}
	c.emitReturn()
	if c.hadError {
		return c.bc, fmt.Errorf("compile error")
	}
	return c.bc, nil
}

// --- token stream plumbing -------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lexer.NextToken()
		if c.current.Type != TokenError {
			break
		}
		c.errorAtCurrent(c.current.ErrMsg)
	}
}

func (c *Compiler) check(t TokenType) bool { return c.current.Type == t }

func (c *Compiler) match(t TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t TokenType, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(t Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	where := ""
	switch {
	case t.Type == TokenEOF:
		where = " at end."
	case t.Type == TokenError:
		where = ""
		msg = t.ErrMsg
	default:
		where = fmt.Sprintf(" at '%s'.", t.Lexeme(c.source))
	}
	if c.trace {
		fmt.Fprintf(os.Stderr, "[line %d] Error%s %s\n", t.Line, where, msg)
	}
}

func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != TokenEOF {
		switch c.current.Type {
		case TokenVar, TokenSet, TokenIf, TokenFor, TokenOutput, TokenOutputLine:
			return
		}
		c.advance()
	}
}

// --- emission ---------------------------------------------------------------

func (c *Compiler) emitByte(b byte) int {
	return c.bc.WriteByte(b, c.previous.Line)
}

func (c *Compiler) emitOp(op vm.Opcode) int {
	return c.bc.WriteOp(op, c.previous.Line)
}

func (c *Compiler) emitOpByte(op vm.Opcode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	c.emitOp(vm.OpReturn)
}

func (c *Compiler) makeConstant(v vm.Value) int {
	idx, err := c.bc.AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return idx
}

func (c *Compiler) emitConstant(v vm.Value) {
	idx := c.makeConstant(v)
	if idx > 0xFF {
		c.emitOp(vm.OpConstantShort)
		c.bc.WriteShort(uint16(idx), c.previous.Line)
	} else {
		c.emitOpByte(vm.OpConstant, byte(idx))
	}
}

func (c *Compiler) emitJump(op vm.Opcode) int {
	c.emitOp(op)
	c.bc.WriteShort(0xFFFF, c.previous.Line)
	return len(c.bc.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.bc.Code) - offset - 2
	if jump > vm.MaxJumpDistance {
		c.error("Too much code to jump over.")
		return
	}
	c.bc.Code[offset] = byte(jump >> 8)
	c.bc.Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(vm.OpLoop)
	offset := len(c.bc.Code) - loopStart + 2
	if offset > vm.MaxJumpDistance {
		c.error("Loop body too large.")
		return
	}
	c.bc.WriteShort(uint16(offset), c.previous.Line)
}

// --- identifiers & variables -------------------------------------------------

func lowerLexeme(source string, t Token) string {
	return strings.ToLower(t.Lexeme(source))
}

func (c *Compiler) identifierConstant(name string) int {
	return c.makeConstant(vm.NewString(c.vm, name))
}

func (c *Compiler) identsEqual(a, b Token) bool {
	return lowerLexeme(c.source, a) == lowerLexeme(c.source, b)
}

func (c *Compiler) resolveLocal(name Token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.identsEqual(c.locals[i].name, name) {
			if c.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth != -1 && c.locals[i].depth < c.scopeDepth {
			break
		}
		if c.identsEqual(c.locals[i].name, name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// parseVariable consumes an '@'-prefixed identifier and, at global scope,
// returns the constant-pool index of its (lowercased) name.
func (c *Compiler) parseVariable(errMsg string) int {
	c.consume(TokenIdentifier, errMsg)
	if !strings.HasPrefix(c.previous.Lexeme(c.source), "@") {
		c.error("Expected variable name to start with '@'.")
	}
	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(lowerLexeme(c.source, c.previous))
}

func (c *Compiler) defineVariable(global int) {
	if c.scopeDepth > 0 {
		c.locals[len(c.locals)-1].depth = c.scopeDepth
		return
	}
	if global > 0xFF {
		c.emitOp(vm.OpDefineGlobalShort)
		c.bc.WriteShort(uint16(global), c.previous.Line)
	} else {
		c.emitOpByte(vm.OpDefineGlobal, byte(global))
	}
}

// emitVariable is the core get/set dispatcher shared by plain reads and
// `@x = expr` assignment expressions.
func (c *Compiler) emitVariable(name Token, canAssign bool) {
	var getOp, setOp vm.Opcode
	var getShort, setShort vm.Opcode
	var arg int
	isLocal := true

	if local := c.resolveLocal(name); local != -1 {
		arg = local
		getOp, setOp = vm.OpGetLocal, vm.OpSetLocal
	} else {
		isLocal = false
		arg = c.identifierConstant(lowerLexeme(c.source, name))
		getOp, getShort = vm.OpGetGlobal, vm.OpGetGlobalShort
		setOp, setShort = vm.OpSetGlobal, vm.OpSetGlobalShort
	}

	if canAssign && c.match(TokenEqual) {
		if !strings.HasPrefix(name.Lexeme(c.source), "@") {
			c.error("Only variables can be assigned to.")
		}
		c.expression()
		if isLocal {
			c.emitOpByte(setOp, byte(arg))
		} else if arg > 0xFF {
			c.emitOp(setShort)
			c.bc.WriteShort(uint16(arg), c.previous.Line)
		} else {
			c.emitOpByte(setOp, byte(arg))
		}
		return
	}

	if isLocal {
		c.emitOpByte(getOp, byte(arg))
	} else if arg > 0xFF {
		c.emitOp(getShort)
		c.bc.WriteShort(uint16(arg), c.previous.Line)
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

// --- expressions --------------------------------------------------------

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	rule := getRule(c.previous.Type)
	if rule.prefix == nil {
		c.error("Expected expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	rule.prefix(c, canAssign)

	for prec <= getRule(c.current.Type).prec {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(TokenRightParen, "Expected ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.previous.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case TokenMinus:
		c.emitOp(vm.OpNegate)
	case TokenNot:
		c.emitOp(vm.OpNot)
	}
}

func (c *Compiler) number(canAssign bool) {
	text := c.previous.Lexeme(c.source)
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		c.error("Unable to parse number.")
		return
	}
	c.emitConstant(vm.Number(n))
}

// string collapses the doubled-quote escape ("" / '') used to embed a
// literal quote character inside a string literal.
func (c *Compiler) string(canAssign bool) {
	lex := c.previous.Lexeme(c.source)
	inner := lex[1 : len(lex)-1]
	quote := lex[0]
	doubled := string(quote) + string(quote)
	collapsed := strings.ReplaceAll(inner, doubled, string(quote))
	c.emitConstant(vm.NewString(c.vm, collapsed))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Type {
	case TokenFalse:
		c.emitOp(vm.OpFalse)
	case TokenTrue:
		c.emitOp(vm.OpTrue)
	case TokenNull:
		c.emitOp(vm.OpNull)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.emitVariable(c.previous, canAssign)
}

func (c *Compiler) nativeFn(canAssign bool) {
	name := lowerLexeme(c.source, c.previous)
	idx := c.identifierConstant(name)
	if idx > 0xFF {
		c.emitOp(vm.OpNativeFnShort)
		c.bc.WriteShort(uint16(idx), c.previous.Line)
	} else {
		c.emitOpByte(vm.OpNativeFn, byte(idx))
	}
}

// pass emits the token's half-open [start, end) byte offsets into the live
// source buffer as two numeric constants, then OpPass, which pops them at
// dispatch time and slices the source directly rather than carrying a copy
// of the text through the constant pool.
func (c *Compiler) pass(canAssign bool) {
	start := float64(c.previous.Offset)
	end := float64(c.previous.Offset + c.previous.Length)
	c.emitConstant(vm.Number(start))
	c.emitConstant(vm.Number(end))
	c.emitOp(vm.OpPass)
}

const maxArgCount = 255

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOpByte(vm.OpCall, byte(argCount))
}

func (c *Compiler) argumentList() int {
	count := 0
	if !c.check(TokenRightParen) {
		for {
			c.expression()
			if count == maxArgCount {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(TokenComma) {
				break
			}
		}
	}
	c.consume(TokenRightParen, "Expected ')' after arguments.")
	return count
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	endJump := c.emitJump(vm.OpJump)
	c.patchJump(elseJump)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.prec + 1)
	switch opType {
	case TokenEqualEqual:
		c.emitOp(vm.OpEqual)
	case TokenNotEqual:
		c.emitOp(vm.OpNotEqual)
	case TokenLess:
		c.emitOp(vm.OpLess)
	case TokenLessEqual:
		c.emitOp(vm.OpLessEqual)
	case TokenGreater:
		c.emitOp(vm.OpGreater)
	case TokenGreaterEqual:
		c.emitOp(vm.OpGreaterEqual)
	}
}

// --- statements -----------------------------------------------------------

// declaration is the top-level and block-body entry point. Which branch
// applies depends entirely on the Lexer's current mode: in pass-through
// text it only ever sees Pass/AttrDelim/FnDelimOpen/BlockDelimOpen tokens;
// once a block has been entered the Lexer mode has already flipped to
// Block, so the same loop naturally starts seeing Var/Set/statement tokens
// instead. There is no explicit mode check here because the token stream
// already reflects it.
func (c *Compiler) declaration() {
	switch {
	case c.match(TokenPass):
		c.pass(false)
	case c.match(TokenAttrDelim):
		c.attrRef()
	case c.match(TokenFnDelimOpen):
		c.inlineExpr()
	case c.match(TokenBlockDelimOpen), c.match(TokenBlockDelimClose):
		// %%[ and ]%% only switch the Lexer between Block and Pass mode;
		// the statements inside a block, and the Pass text between blocks
		// in an if or for body, all compile through this same loop.
	case c.match(TokenVar):
		c.varDeclStatement()
	case c.match(TokenSet):
		c.setDeclStatement()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

// attrRef compiles a %%AttrName%% reference: look up the attribute as a
// global and write it.
func (c *Compiler) attrRef() {
	c.consume(TokenIdentifier, "Expected attribute name.")
	name := lowerLexeme(c.source, c.previous)
	idx := c.identifierConstant(name)
	if idx > 0xFF {
		c.emitOp(vm.OpGetGlobalShort)
		c.bc.WriteShort(uint16(idx), c.previous.Line)
	} else {
		c.emitOpByte(vm.OpGetGlobal, byte(idx))
	}
	c.consume(TokenAttrDelim, "Expected '%%' to close attribute reference.")
	c.emitOp(vm.OpWrite)
}

// inlineExpr compiles a %%= expr =%% region: the opening delimiter has
// already been consumed by declaration's match.
func (c *Compiler) inlineExpr() {
	c.expression()
	c.consume(TokenFnDelimClose, "Expected '=%%' to close inline expression.")
	c.emitOp(vm.OpWrite)
}

func (c *Compiler) varDeclStatement() {
	global := c.parseVariable("Expected variable name.")
	if c.match(TokenEqual) {
		c.expression()
	} else {
		c.emitOp(vm.OpNull)
	}
	c.defineVariable(global)
}

// setDeclStatement compiles `set @x = expr`, always an assignment to an
// existing variable (local or global).
func (c *Compiler) setDeclStatement() {
	c.consume(TokenIdentifier, "Expected variable name.")
	name := c.previous
	if !strings.HasPrefix(name.Lexeme(c.source), "@") {
		c.error("Expected variable name to start with '@'.")
	}
	c.consume(TokenEqual, "Expected '=' after variable name.")
	c.expression()
	c.emitVariableAssignTo(name)
	c.emitOp(vm.OpPop)
}

func (c *Compiler) statement() {
	switch {
	case c.match(TokenOutput):
		c.output(false)
	case c.match(TokenOutputLine):
		c.output(true)
	case c.match(TokenIf):
		c.ifStatement()
	case c.match(TokenFor):
		c.forStatement()
	default:
		c.exprStatement()
	}
}

func (c *Compiler) exprStatement() {
	c.expression()
	c.emitOp(vm.OpPop)
}

// output compiles `output(expr)`/`outputline(expr)`. The reference compiler
// classifies its argument by whether the leading token was a FnIdentifier
// before deciding between a Write and a Pop; that classification no longer
// changes the emitted opcode here because Value.ToString already renders
// every kind of value (including a native call's return value) uniformly,
// so both branches converge on Write. See DESIGN.md.
func (c *Compiler) output(newline bool) {
	c.consume(TokenLeftParen, "Expected '(' after output statement.")
	c.expression()
	c.consume(TokenRightParen, "Expected ')' after output expression.")
	if newline {
		c.emitOp(vm.OpWriteLine)
	} else {
		c.emitOp(vm.OpWrite)
	}
}

func (c *Compiler) ifStatement() {
	c.expression()
	c.match(TokenThen)

	thenJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.blockUntil(TokenElseIf, TokenElse, TokenEndIf)

	var endJumps []int
	for c.check(TokenElseIf) {
		endJumps = append(endJumps, c.emitJump(vm.OpJump))
		c.patchJump(thenJump)
		c.emitOp(vm.OpPop)
		c.advance() // consume ElseIf
		c.expression()
		c.match(TokenThen)
		thenJump = c.emitJump(vm.OpJumpIfFalse)
		c.emitOp(vm.OpPop)
		c.blockUntil(TokenElseIf, TokenElse, TokenEndIf)
	}

	// The reference compiler always emits this terminal jump, even when
	// there is no else clause to jump past.
	endJumps = append(endJumps, c.emitJump(vm.OpJump))
	c.patchJump(thenJump)
	c.emitOp(vm.OpPop)

	if c.match(TokenElse) {
		c.blockUntil(TokenEndIf)
	}

	for _, j := range endJumps {
		c.patchJump(j)
	}
	c.consume(TokenEndIf, "Expected 'endif' to close 'if' statement.")
}

// blockUntil compiles declarations until the current token matches one of
// stop, without consuming it.
func (c *Compiler) blockUntil(stop ...TokenType) {
	for !c.check(TokenEOF) {
		for _, s := range stop {
			if c.check(s) {
				return
			}
		}
		c.declaration()
	}
}

func (c *Compiler) forStatement() {
	c.beginScope()
	global := c.parseVariable("Expected loop variable name.")
	loopVarName := c.previous
	c.consume(TokenEqual, "Expected '=' after loop variable.")
	c.expression()
	c.defineVariable(global) // always local: for always runs inside a scope

	var compareOp vm.Opcode
	switch {
	case c.match(TokenTo):
		compareOp = vm.OpLessEqual
	case c.match(TokenDownTo):
		compareOp = vm.OpGreaterEqual
	default:
		c.errorAtCurrent("Expected 'to' or 'downto' in for statement.")
	}

	loopStart := len(c.bc.Code)
	c.emitVariable(loopVarName, false)
	c.expression() // end expression
	c.emitOp(compareOp)
	exitJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)

	c.match(TokenDo)
	c.blockUntil(TokenNext)

	c.emitVariable(loopVarName, false)
	if compareOp == vm.OpLessEqual {
		c.emitConstant(vm.Number(1))
	} else {
		c.emitConstant(vm.Number(-1))
	}
	c.emitOp(vm.OpAdd)
	c.emitVariableAssignTo(loopVarName)
	c.emitOp(vm.OpPop)

	c.emitLoop(loopStart)
	c.patchJump(exitJump)
	c.emitOp(vm.OpPop)

	c.consume(TokenNext, "Expected 'next' to close 'for' statement.")
	if c.check(TokenIdentifier) {
		c.advance() // optional trailing loop-variable mention, discarded
	}
	c.endScope()
}

// emitVariableAssignTo stores the value currently on top of the stack into
// name without re-evaluating an expression (used by for's increment step,
// which has already computed the new value).
func (c *Compiler) emitVariableAssignTo(name Token) {
	if local := c.resolveLocal(name); local != -1 {
		c.emitOpByte(vm.OpSetLocal, byte(local))
		return
	}
	idx := c.identifierConstant(lowerLexeme(c.source, name))
	if idx > 0xFF {
		c.emitOp(vm.OpSetGlobalShort)
		c.bc.WriteShort(uint16(idx), c.previous.Line)
	} else {
		c.emitOpByte(vm.OpSetGlobal, byte(idx))
	}
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.emitOp(vm.OpPop)
		c.locals = c.locals[:len(c.locals)-1]
	}
}
