package textfmt

import (
	"fmt"

	mast "github.com/google/mangle/ast"

	iast "idpgo/internal/ast"
)

// ParseVocabulary reads name's sort, predicate and function
// declarations from src.
//
// Grammar (informal):
//
//	decl    := sortDecl | predDecl | funcDecl
//	sortDecl:= "type" IDENT [ "=" ( "{" IDENT {"," IDENT} "}" | "[" NUMBER ".." NUMBER "]" ) ]
//	predDecl:= IDENT "(" sortList ")"
//	funcDecl:= ["partial"] IDENT "(" sortList ")" ":" IDENT
//	sortList:= IDENT {"," IDENT}
//
// Every IDENT naming a sort in a predDecl/funcDecl must already have
// been declared (or be one of the built-in int/float/string sorts
// every Vocabulary seeds itself with).
func ParseVocabulary(name, src string) (*iast.Vocabulary, error) {
	toks, err := newLexer(src).tokenize()
	if err != nil {
		return nil, fmt.Errorf("textfmt: vocabulary %s: %w", name, err)
	}
	p := &vocabParser{toks: toks, vocab: iast.NewVocabulary(name)}
	if err := p.parseDecls(); err != nil {
		return nil, fmt.Errorf("textfmt: vocabulary %s: %w", name, err)
	}
	return p.vocab, nil
}

type vocabParser struct {
	toks  []token
	pos   int
	vocab *iast.Vocabulary
}

func (p *vocabParser) cur() token  { return p.toks[p.pos] }
func (p *vocabParser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *vocabParser) expect(k tokenKind) (token, error) {
	if p.cur().kind != k {
		return token{}, fmt.Errorf("line %d: unexpected %s", p.cur().line, p.cur())
	}
	return p.next(), nil
}

func (p *vocabParser) expectIdent(text string) error {
	if p.cur().kind != tIdent || p.cur().text != text {
		return fmt.Errorf("line %d: expected %q, got %s", p.cur().line, text, p.cur())
	}
	p.next()
	return nil
}

func (p *vocabParser) parseDecls() error {
	for p.cur().kind != tEOF {
		if p.cur().kind == tIdent && p.cur().text == "type" {
			if err := p.parseSortDecl(); err != nil {
				return err
			}
			continue
		}
		if err := p.parseSymbolDecl(); err != nil {
			return err
		}
	}
	return nil
}

func (p *vocabParser) parseSortDecl() error {
	if err := p.expectIdent("type"); err != nil {
		return err
	}
	nameTok, err := p.expect(tIdent)
	if err != nil {
		return err
	}
	sort := &iast.Sort{Name: nameTok.text}
	if p.cur().kind == tEq {
		p.next()
		switch p.cur().kind {
		case tLBrace:
			p.next()
			var elems []iast.DomainElement
			for {
				el, err := p.expect(tIdent)
				if err != nil {
					return err
				}
				elems = append(elems, mast.String(el.text))
				if p.cur().kind == tComma {
					p.next()
					continue
				}
				break
			}
			if _, err := p.expect(tRBrace); err != nil {
				return err
			}
			sort.Table = iast.NewEnumTable(elems...)
		case tLBracket:
			p.next()
			lo, err := p.expect(tNumber)
			if err != nil {
				return err
			}
			if _, err := p.expect(tDot); err != nil {
				return err
			}
			if _, err := p.expect(tDot); err != nil {
				return err
			}
			hi, err := p.expect(tNumber)
			if err != nil {
				return err
			}
			if _, err := p.expect(tRBracket); err != nil {
				return err
			}
			loN, _ := parseIntLiteral(lo.text)
			hiN, _ := parseIntLiteral(hi.text)
			sort.Table = &iast.RangeTable{Lo: loN, Hi: hiN}
		default:
			return fmt.Errorf("line %d: expected { or [ after 'type %s ='", p.cur().line, nameTok.text)
		}
	}
	return p.vocab.AddSort(sort)
}

func (p *vocabParser) sortRef(name string, line int) (*iast.Sort, error) {
	s, ok := p.vocab.Sort(name)
	if !ok {
		return nil, fmt.Errorf("line %d: undeclared sort %q", line, name)
	}
	return s, nil
}

func (p *vocabParser) parseSortList() ([]*iast.Sort, error) {
	if _, err := p.expect(tLParen); err != nil {
		return nil, err
	}
	var sorts []*iast.Sort
	if p.cur().kind != tRParen {
		for {
			tok, err := p.expect(tIdent)
			if err != nil {
				return nil, err
			}
			s, err := p.sortRef(tok.text, tok.line)
			if err != nil {
				return nil, err
			}
			sorts = append(sorts, s)
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
	return sorts, nil
}

func (p *vocabParser) parseSymbolDecl() error {
	partial := false
	if p.cur().kind == tIdent && p.cur().text == "partial" {
		partial = true
		p.next()
	}
	nameTok, err := p.expect(tIdent)
	if err != nil {
		return err
	}
	args, err := p.parseSortList()
	if err != nil {
		return err
	}
	if p.cur().kind == tColon {
		p.next()
		resTok, err := p.expect(tIdent)
		if err != nil {
			return err
		}
		result, err := p.sortRef(resTok.text, resTok.line)
		if err != nil {
			return err
		}
		return p.vocab.AddFunction(&iast.Function{Name: nameTok.text, Args: args, Result: result, Partial: partial})
	}
	if partial {
		return fmt.Errorf("line %d: 'partial' only applies to a function declaration", nameTok.line)
	}
	return p.vocab.AddPredicate(&iast.Predicate{Name: nameTok.text, Sorts: args})
}
