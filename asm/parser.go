package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/dragan-mitrasinovic/RiscToolchain/isa"
)

// Predefined system equates for the platform's well-known addresses.
var sysEquate = map[string]uint32{
	"term_out":  isa.TERM_OUT,
	"term_in":   isa.TERM_IN,
	"tim_cfg":   isa.TIM_CFG,
	"start":     isa.START,
	"stack_top": isa.STACK_TOP,
}

// regMap maps register operand spellings.
var regMap = map[string]isa.Reg{
	"r0": isa.R0, "r1": isa.R1, "r2": isa.R2, "r3": isa.R3,
	"r4": isa.R4, "r5": isa.R5, "r6": isa.R6, "r7": isa.R7,
	"r8": isa.R8, "r9": isa.R9, "r10": isa.R10, "r11": isa.R11,
	"r12": isa.R12, "r13": isa.R13, "r14": isa.SP, "r15": isa.PC,
	"sp": isa.SP, "pc": isa.PC,
}

// csrMap maps control/status register operand spellings.
var csrMap = map[string]isa.Csr{
	"status":  isa.CSR_STATUS,
	"handler": isa.CSR_HANDLER,
	"cause":   isa.CSR_CAUSE,
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parser is the line-oriented assembly front end. It produces the
// assembly unit the backend consumes, expanding .equ constants and
// compile-time $() expressions along the way.
type Parser struct {
	Verbose bool              // If set, verbosely logs parsed lines.
	Equate  map[string]uint32 // Map of equates, rebuilt per Parse.

	predefine map[string]uint32
}

// Predefine defines an equate visible to every subsequent Parse run.
func (p *Parser) Predefine(name string, value uint32) {
	if p.predefine == nil {
		p.predefine = map[string]uint32{name: value}
	} else {
		p.predefine[name] = value
	}
}

// valueOf parses a numeric word. A leading '~' inverts the value.
func (p *Parser) valueOf(word string) (value uint32, err error) {
	invert := false
	if strings.HasPrefix(word, "~") {
		invert = true
		word = word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 < 0 {
		value = uint32(0xffffffff + (v64 + 1))
	} else {
		value = uint32(v64)
	}

	if invert {
		value = ^value
	}

	return
}

// parenEval does compile-time $(...) evaluations with every equate in
// scope as an integer.
func (p *Parser) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, val := range p.Equate {
		pred[key] = starlark.MakeInt(int(val))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// parseOperand parses a single comma-delimited operand.
func (p *Parser) parseOperand(word string) (od Operand, err error) {
	switch {
	case strings.HasPrefix(word, "$"):
		od.Mode = MODE_IMM
		word = word[1:]
		if identRe.MatchString(word) {
			value, ok := p.Equate[word]
			if ok {
				od.Value = value
			} else {
				od.Sym = word
			}
			return
		}
		od.Value, err = p.valueOf(word)
		return

	case strings.HasPrefix(word, "%"):
		word = word[1:]
		reg, ok := regMap[word]
		if ok {
			od.Mode = MODE_REGDIR
			od.Reg = reg
			return
		}
		csr, ok := csrMap[word]
		if ok {
			od.Mode = MODE_CSR
			od.Csr = csr
			return
		}
		err = ErrRegisterInvalid
		return

	case strings.HasPrefix(word, "["):
		if !strings.HasSuffix(word, "]") {
			err = ErrOperandInvalid
			return
		}
		inner := strings.TrimSpace(word[1 : len(word)-1])
		if !strings.HasPrefix(inner, "%") {
			err = ErrOperandInvalid
			return
		}
		neg := false
		base := inner[1:]
		var offword string
		if n := strings.IndexAny(inner, "+-"); n >= 0 {
			neg = inner[n] == '-'
			base = strings.TrimSpace(inner[1:n])
			offword = strings.TrimSpace(inner[n+1:])
		}
		reg, ok := regMap[base]
		if !ok {
			err = ErrRegisterInvalid
			return
		}
		od.Reg = reg
		if offword == "" {
			od.Mode = MODE_REGIND
			return
		}
		od.Mode = MODE_REGOFF
		var off uint32
		if value, ok := p.Equate[offword]; ok {
			off = value
		} else {
			off, err = p.valueOf(offword)
			if err != nil {
				return
			}
		}
		if neg {
			off = -off
		}
		od.Value = off
		return

	default:
		od.Mode = MODE_MEMDIR
		if identRe.MatchString(word) {
			value, ok := p.Equate[word]
			if ok {
				od.Value = value
			} else {
				od.Sym = word
			}
			return
		}
		od.Value, err = p.valueOf(word)
		return
	}
}

// Parse parses an input stream into an assembly unit.
func (p *Parser) Parse(name string, input io.Reader) (unit *Unit, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			unit = nil
		}
	}()

	p.Equate = maps.Clone(sysEquate)
	for attr, val := range p.predefine {
		p.Equate[attr] = val
	}

	unit = &Unit{Name: name}

	dollarRe := regexp.MustCompile(`\$\([^\$]*\)`)

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if p.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(text)
		if n := strings.IndexAny(line, "#;"); n >= 0 {
			line = strings.TrimSpace(line[:n])
		}

		// Do $() evaluations
		line = dollarRe.ReplaceAllStringFunc(line, func(str string) string {
			value, _err := p.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return fmt.Sprintf("%#v", value)
		})
		if err != nil {
			return
		}

		item := Item{LineNo: lineno, Text: line}

		fields := strings.Fields(line)
		for len(fields) > 0 && strings.HasSuffix(fields[0], ":") {
			label := strings.TrimSuffix(fields[0], ":")
			if !identRe.MatchString(label) {
				err = ErrLabelInvalid(label)
				return
			}
			item.Labels = append(item.Labels, label)
			fields = fields[1:]
		}

		if len(fields) > 0 {
			item.Op = fields[0]

			rest := strings.TrimSpace(strings.Join(fields[1:], " "))

			// .equ NAME VALUE resolves at parse time so later
			// operands can substitute the constant inline.
			if item.Op == ".equ" {
				var value uint32
				value, err = p.parseEquate(fields[1:])
				if err != nil {
					return
				}
				item.Operands = []Operand{
					{Mode: MODE_MEMDIR, Sym: fields[1]},
					{Mode: MODE_MEMDIR, Value: value},
				}
				unit.Items = append(unit.Items, item)
				continue
			}

			if rest != "" {
				for _, word := range strings.Split(rest, ",") {
					word = strings.TrimSpace(word)
					if word == "" {
						err = ErrOperandInvalid
						return
					}
					var od Operand
					od, err = p.parseOperand(word)
					if err != nil {
						return
					}
					item.Operands = append(item.Operands, od)
				}
			}
		}

		if item.Op == "" && len(item.Labels) == 0 {
			continue
		}

		unit.Items = append(unit.Items, item)

		if item.Op == ".end" {
			break
		}
	}

	err = scanner.Err()

	return
}

// parseEquate handles ".equ NAME VALUE".
func (p *Parser) parseEquate(fields []string) (value uint32, err error) {
	if len(fields) != 2 {
		err = ErrEquateSyntax
		return
	}
	name := fields[0]
	if !identRe.MatchString(name) {
		err = ErrEquateSyntax
		return
	}
	_, ok := p.Equate[name]
	if ok {
		err = ErrEquateDuplicate
		return
	}

	if prior, ok := p.Equate[fields[1]]; ok {
		value = prior
	} else {
		value, err = p.valueOf(fields[1])
		if err != nil {
			return
		}
	}

	p.Equate[name] = value
	return
}
