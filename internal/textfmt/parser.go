package textfmt

import (
	"fmt"

	iast "idpgo/internal/ast"
)

// ParseTheory reads a theory named name over vocab from src: a
// sequence of dot-terminated FO(.) sentences and brace-delimited
// definition blocks.
//
// Grammar (informal, precedence loosest-to-tightest: <=>/=>/<= ,
// | , & , ~ , quantifiers , atom):
//
//	theory   := { sentence | definition }
//	sentence := formula "."
//	definition := "{" { rule } "}"
//	rule     := atom [ "<-" formula ] "."
//	formula  := equiv
//	equiv    := disj [ ("<=>"|"=>"|"<=") disj ]
//	disj     := conj { "|" conj }
//	conj     := unary { "&" unary }
//	unary    := "~" unary | quantified | primary
//	quantified := ("!"|"?") varDecl { "," varDecl } ":" formula
//	varDecl  := IDENT "[" IDENT "]"
//	primary  := "(" formula ")" | aggComparison | comparison | atom
//	atom     := IDENT "(" termList ")"
//	comparison := term ("="|"~="|"<"|"=<"|">"|">=") term
//	aggComparison := aggFunc "{" varDecl {"," varDecl} ":" formula [ ":" term ] "}" compareOp term
//	aggFunc  := "card" | "sum" | "prod" | "min" | "max"
//	term     := IDENT | NUMBER | FLOAT | STRING | IDENT "(" termList ")"
//
// An aggregate without a weight term weighs every element 1. A bare
// IDENT term must name a variable bound by an enclosing quantifier or
// aggregate set; a nullary function is written IDENT "()", and a
// vocabulary constant has to be spelled out as a string/number
// literal, there being no separate constant-symbol syntax here.
func ParseTheory(vocab *iast.Vocabulary, name, src string) (*iast.Theory, error) {
	toks, err := newLexer(src).tokenize()
	if err != nil {
		return nil, fmt.Errorf("textfmt: theory %s: %w", name, err)
	}
	p := &theoryParser{toks: toks, vocab: vocab, theory: iast.NewTheory(name, vocab)}
	if err := p.parseTheory(); err != nil {
		return nil, fmt.Errorf("textfmt: theory %s: %w", name, err)
	}
	return p.theory, nil
}

type theoryParser struct {
	toks   []token
	pos    int
	vocab  *iast.Vocabulary
	theory *iast.Theory
	scope  []*iast.Variable // innermost-last, opposite of fobdd's env
	nextID int
}

func (p *theoryParser) cur() token  { return p.toks[p.pos] }
func (p *theoryParser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *theoryParser) expect(k tokenKind) (token, error) {
	if p.cur().kind != k {
		return token{}, fmt.Errorf("line %d: unexpected %s", p.cur().line, p.cur())
	}
	return p.next(), nil
}

func (p *theoryParser) parseTheory() error {
	for p.cur().kind != tEOF {
		if p.cur().kind == tLBrace {
			if err := p.parseDefinition(); err != nil {
				return err
			}
			continue
		}
		f, err := p.parseFormula()
		if err != nil {
			return err
		}
		if _, err := p.expect(tDot); err != nil {
			return err
		}
		p.theory.AddSentence(f)
	}
	return nil
}

func (p *theoryParser) parseDefinition() error {
	if _, err := p.expect(tLBrace); err != nil {
		return err
	}
	def := &iast.Definition{ID: p.nextID}
	p.nextID++
	for p.cur().kind != tRBrace {
		r, err := p.parseRule()
		if err != nil {
			return err
		}
		def.Rules = append(def.Rules, r)
	}
	if _, err := p.expect(tRBrace); err != nil {
		return err
	}
	p.theory.AddDefinition(def)
	return nil
}

func (p *theoryParser) parseRule() (*iast.Rule, error) {
	head, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	r := &iast.Rule{Head: head}
	if p.cur().kind == tLArrow {
		p.next()
		body, err := p.parseFormula()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	if _, err := p.expect(tDot); err != nil {
		return nil, err
	}
	return r, nil
}

// parseFormula is the equiv-level entry point, the loosest binding.
func (p *theoryParser) parseFormula() (iast.Formula, error) {
	left, err := p.parseDisj()
	if err != nil {
		return nil, err
	}
	var op iast.EquivOp
	switch p.cur().kind {
	case tEquiv:
		op = iast.EquivEQ
	case tImpl:
		op = iast.EquivImpl
	case tRImpl:
		op = iast.EquivRImpl
	default:
		return left, nil
	}
	p.next()
	right, err := p.parseDisj()
	if err != nil {
		return nil, err
	}
	return &iast.Equiv{Sign: iast.Pos, Op: op, Left: left, Right: right}, nil
}

func (p *theoryParser) parseDisj() (iast.Formula, error) {
	first, err := p.parseConj()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tPipe {
		return first, nil
	}
	subs := []iast.Formula{first}
	for p.cur().kind == tPipe {
		p.next()
		n, err := p.parseConj()
		if err != nil {
			return nil, err
		}
		subs = append(subs, n)
	}
	return &iast.BoolForm{Sign: iast.Pos, Op: iast.Disj, Subforms: subs}, nil
}

func (p *theoryParser) parseConj() (iast.Formula, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tAmp {
		return first, nil
	}
	subs := []iast.Formula{first}
	for p.cur().kind == tAmp {
		p.next()
		n, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		subs = append(subs, n)
	}
	return &iast.BoolForm{Sign: iast.Pos, Op: iast.Conj, Subforms: subs}, nil
}

func (p *theoryParser) parseUnary() (iast.Formula, error) {
	switch p.cur().kind {
	case tTilde:
		p.next()
		f, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negateFormula(f), nil
	case tBang, tQuest:
		return p.parseQuantified()
	default:
		return p.parsePrimary()
	}
}

// negateFormula flips Sign in place rather than wrapping every
// formula kind in its own "negated" variant, matching how every
// Formula constructor here already carries an explicit Sign field.
func negateFormula(f iast.Formula) iast.Formula {
	switch n := f.(type) {
	case *iast.Atom:
		n.Sign = n.Sign.Flip()
	case *iast.Comparison:
		n.Sign = n.Sign.Flip()
	case *iast.BoolForm:
		n.Sign = n.Sign.Flip()
	case *iast.Quantified:
		n.Sign = n.Sign.Flip()
	case *iast.Equiv:
		n.Sign = n.Sign.Flip()
	case *iast.AggComparison:
		n.Sign = n.Sign.Flip()
	}
	return f
}

func (p *theoryParser) parseQuantified() (iast.Formula, error) {
	quantTok := p.next()
	quant := iast.Forall
	if quantTok.kind == tQuest {
		quant = iast.Exists
	}
	vars, err := p.parseVarDeclList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tColon); err != nil {
		return nil, err
	}
	// The quantifier's scope extends as far right as it can — through
	// &, | and <=>/=>/<= — rather than binding to just the next atom,
	// so parseFormula (not parseUnary) is what reads the body.
	p.pushScope(vars)
	sub, err := p.parseFormula()
	p.popScope(len(vars))
	if err != nil {
		return nil, err
	}
	return &iast.Quantified{Sign: iast.Pos, Quant: quant, Vars: vars, Subform: sub}, nil
}

// parseVarDeclList reads "x[Sort], y[Sort2], ..." — each variable
// carries its own sort, rather than one sort shared by the whole
// list, so "!x[Node],y[Color]: ..." mixed-sort blocks are expressible.
func (p *theoryParser) parseVarDeclList() ([]*iast.Variable, error) {
	var vars []*iast.Variable
	for {
		nameTok, err := p.expect(tIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tLBracket); err != nil {
			return nil, err
		}
		sortTok, err := p.expect(tIdent)
		if err != nil {
			return nil, err
		}
		sort, ok := p.vocab.Sort(sortTok.text)
		if !ok {
			return nil, fmt.Errorf("line %d: undeclared sort %q", sortTok.line, sortTok.text)
		}
		if _, err := p.expect(tRBracket); err != nil {
			return nil, err
		}
		vars = append(vars, iast.NewVariable(nameTok.text, sort))
		if p.cur().kind == tComma {
			p.next()
			continue
		}
		break
	}
	return vars, nil
}

func (p *theoryParser) pushScope(vars []*iast.Variable) { p.scope = append(p.scope, vars...) }

func (p *theoryParser) popScope(n int) { p.scope = p.scope[:len(p.scope)-n] }

func (p *theoryParser) lookupVar(name string) (*iast.Variable, bool) {
	for i := len(p.scope) - 1; i >= 0; i-- {
		if p.scope[i].Name == name {
			return p.scope[i], true
		}
	}
	return nil, false
}

func (p *theoryParser) parsePrimary() (iast.Formula, error) {
	if p.cur().kind == tLParen {
		p.next()
		f, err := p.parseFormula()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tRParen); err != nil {
			return nil, err
		}
		return f, nil
	}
	if p.cur().kind == tHash || p.isAggFuncIdent() {
		return p.parseAggComparison()
	}

	// An atom and a comparison both start with a term; disambiguate by
	// scanning past the first term for a comparison operator.
	save := p.pos
	t, err := p.parseTerm()
	if err == nil && isCompareOp(p.cur().kind) {
		op := compareOpFor(p.cur().kind)
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return &iast.Comparison{Sign: iast.Pos, Op: op, Left: t, Right: right}, nil
	}
	p.pos = save
	return p.parseAtom()
}

func isCompareOp(k tokenKind) bool {
	switch k {
	case tEq, tNEq, tLt, tLe, tGt, tGe:
		return true
	}
	return false
}

func compareOpFor(k tokenKind) iast.CompareOp {
	switch k {
	case tEq:
		return iast.CmpEQ
	case tNEq:
		return iast.CmpNE
	case tLt:
		return iast.CmpLT
	case tLe:
		return iast.CmpLE
	case tGt:
		return iast.CmpGT
	default:
		return iast.CmpGE
	}
}

func (p *theoryParser) isAggFuncIdent() bool {
	if p.cur().kind != tIdent {
		return false
	}
	switch p.cur().text {
	case "card", "sum", "prod", "min", "max":
		return p.toks[p.pos+1].kind == tLBrace
	}
	return false
}

func aggFuncFor(name string) iast.AggFunction {
	switch name {
	case "sum":
		return iast.AggSum
	case "prod":
		return iast.AggProd
	case "min":
		return iast.AggMin
	case "max":
		return iast.AggMax
	default:
		return iast.AggCard
	}
}

// parseAggComparison reads "card{x[Sort]: Cond : Weight} op Bound" (a
// leading "#" before the aggregate function name is accepted as a
// synonym for "card", matching the cardinality sigil some IDP
// surfaces use).
func (p *theoryParser) parseAggComparison() (iast.Formula, error) {
	fn := iast.AggCard
	if p.cur().kind == tHash {
		p.next()
	}
	if p.cur().kind == tIdent {
		fn = aggFuncFor(p.cur().text)
		p.next()
	}
	if _, err := p.expect(tLBrace); err != nil {
		return nil, err
	}
	vars, err := p.parseVarDeclList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tColon); err != nil {
		return nil, err
	}
	p.pushScope(vars)
	cond, err := p.parseFormula()
	if err != nil {
		p.popScope(len(vars))
		return nil, err
	}
	var weight iast.Term
	if p.cur().kind == tColon {
		p.next()
		weight, err = p.parseTerm()
		if err != nil {
			p.popScope(len(vars))
			return nil, err
		}
	} else {
		weight = iast.NewConstTerm(constNumber(1), iast.SortInt)
	}
	p.popScope(len(vars))
	if _, err := p.expect(tRBrace); err != nil {
		return nil, err
	}
	if !isCompareOp(p.cur().kind) {
		return nil, fmt.Errorf("line %d: expected comparison operator after aggregate set", p.cur().line)
	}
	op := compareOpFor(p.cur().kind)
	p.next()
	bound, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	set := &iast.SetTerm{Vars: vars, Condition: cond, Weight: weight}
	return &iast.AggComparison{Sign: iast.Pos, Op: op, Bound: bound, Agg: &iast.AggTerm{Function: fn, Set: set}}, nil
}

func (p *theoryParser) parseAtom() (*iast.Atom, error) {
	nameTok, err := p.expect(tIdent)
	if err != nil {
		return nil, err
	}
	pred, ok := p.vocab.Predicate(nameTok.text)
	if !ok {
		return nil, fmt.Errorf("line %d: undeclared predicate %q", nameTok.line, nameTok.text)
	}
	args, err := p.parseTermList()
	if err != nil {
		return nil, err
	}
	if len(args) != pred.Arity() {
		return nil, fmt.Errorf("line %d: predicate %q wants %d arguments, got %d", nameTok.line, nameTok.text, pred.Arity(), len(args))
	}
	return &iast.Atom{Sign: iast.Pos, Pred: pred, Args: args}, nil
}

func (p *theoryParser) parseTermList() ([]iast.Term, error) {
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	var args []iast.Term
	if p.cur().kind != tRParen {
		for {
			t, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			args = append(args, t)
			if p.cur().kind == tComma {
				p.next()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tRParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *theoryParser) parseTerm() (iast.Term, error) {
	switch p.cur().kind {
	case tNumber:
		tok := p.next()
		n, err := parseIntLiteral(tok.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", tok.line, err)
		}
		return iast.NewConstTerm(constNumber(n), iast.SortInt), nil
	case tFloat:
		tok := p.next()
		f, err := parseFloatLiteral(tok.text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", tok.line, err)
		}
		return iast.NewConstTerm(constFloat(f), iast.SortFloat), nil
	case tString:
		tok := p.next()
		return iast.NewConstTerm(constString(tok.text), nil), nil
	case tIdent:
		nameTok := p.next()
		if p.cur().kind == tLParen {
			return p.parseFuncApp(nameTok)
		}
		if v, ok := p.lookupVar(nameTok.text); ok {
			return v, nil
		}
		return nil, fmt.Errorf("line %d: unbound variable %q", nameTok.line, nameTok.text)
	default:
		return nil, fmt.Errorf("line %d: expected a term, got %s", p.cur().line, p.cur())
	}
}

func (p *theoryParser) parseFuncApp(nameTok token) (iast.Term, error) {
	fn, ok := p.vocab.Function(nameTok.text)
	if !ok {
		return nil, fmt.Errorf("line %d: undeclared function %q", nameTok.line, nameTok.text)
	}
	args, err := p.parseTermList()
	if err != nil {
		return nil, err
	}
	if len(args) != fn.Arity() {
		return nil, fmt.Errorf("line %d: function %q wants %d arguments, got %d", nameTok.line, nameTok.text, fn.Arity(), len(args))
	}
	return &iast.FuncApp{Func: fn, Args: args}, nil
}
