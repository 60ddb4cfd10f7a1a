package interp

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// The modules in this file back the remainder of spec §4.7's stdlib module list that aren't
// backed by a dedicated file of their own. Spec §1 scopes stdlib module *implementations*
// ("json, math, re, fastapi, ... pydantic, etc.") as deliberately out of scope beyond "the
// contracts they expose to the evaluator" — so each of these is a minimal, real implementation of
// that contract rather than a faithful port of the Python library it stands in for. None of these
// concerns (HTML escaping, CSV, text templating, toy web routing, base-model validation, test
// assertions) has a grounding dependency anywhere in the retrieved corpus (see DESIGN.md), so each
// is built on the closest standard-library equivalent rather than inventing a fake third-party
// module.

func init() {
	stdlibModules["csv"] = buildCSVModule
	stdlibModules["html"] = buildHTMLModule
	stdlibModules["unittest"] = buildUnittestModule
	stdlibModules["jinja2"] = buildJinja2Module
	stdlibModules["markdown"] = buildMarkdownModule
	stdlibModules["fastapi"] = buildFastAPIModule
	stdlibModules["pydantic"] = buildPydanticModule
}

// buildCSVModule wires encoding/csv, the standard library's own CSV implementation, rather than
// hand-rolling quote/escape handling.
func buildCSVModule(ctx *Context) pyObject {
	m := newModule("csv")
	m.set("reader", nativeFn("reader", func(ctx *Context, args *callArgs) pyObject {
		text, _ := args.arg(0).(pyString)
		r := csv.NewReader(strings.NewReader(string(text)))
		records, err := r.ReadAll()
		if err != nil {
			panic(ctx.newException("ValueError", "csv: "+err.Error()))
		}
		rows := make([]pyObject, len(records))
		for i, rec := range records {
			cells := make([]pyObject, len(rec))
			for j, c := range rec {
				cells[j] = pyString(c)
			}
			rows[i] = newPyList(cells)
		}
		return newPyList(rows)
	}))
	m.set("writer", nativeFn("writer", func(ctx *Context, args *callArgs) pyObject {
		return newCSVWriter()
	}))
	return m
}

// pyCSVWriter backs csv.writer()'s handful of methods; results accumulate in an in-memory buffer
// retrievable via getvalue(), since there's no open file handle to write through here.
type pyCSVWriter struct {
	buf *bytes.Buffer
	w   *csv.Writer
}

func newCSVWriter() *pyCSVWriter {
	buf := &bytes.Buffer{}
	return &pyCSVWriter{buf: buf, w: csv.NewWriter(buf)}
}

func (c *pyCSVWriter) Type() string   { return "csv.writer" }
func (c *pyCSVWriter) IsTruthy() bool { return true }
func (c *pyCSVWriter) String() string { return "<csv.writer object>" }
func (c *pyCSVWriter) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'csv.writer' and '%s'", operator, operand.Type()))
}
func (c *pyCSVWriter) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "writerow":
		return nativeFn("writerow", func(ctx *Context, args *callArgs) pyObject {
			var row []string
			for _, v := range collectIterable(ctx, args.arg(0)) {
				row = append(row, strOf(ctx, v))
			}
			if err := c.w.Write(row); err != nil {
				panic(ctx.newException("ValueError", "csv: "+err.Error()))
			}
			c.w.Flush()
			return None
		}), true
	case "getvalue":
		return nativeFn("getvalue", func(ctx *Context, args *callArgs) pyObject {
			return pyString(c.buf.String())
		}), true
	}
	return nil, false
}

// buildHTMLModule wires Go's standard html package, which already implements the same named
// entity escaping Python's html.escape/html.unescape contract requires.
func buildHTMLModule(ctx *Context) pyObject {
	m := newModule("html")
	m.set("escape", nativeFn("escape", func(ctx *Context, args *callArgs) pyObject {
		s, _ := args.arg(0).(pyString)
		return pyString(html.EscapeString(string(s)))
	}))
	m.set("unescape", nativeFn("unescape", func(ctx *Context, args *callArgs) pyObject {
		s, _ := args.arg(0).(pyString)
		return pyString(html.UnescapeString(string(s)))
	}))
	return m
}

// buildUnittestModule returns a TestCase factory exposing the handful of assertion methods a
// script written against unittest's contract would call; it is a plain Go-backed object (like
// hostmods.go's pyServiceClient) rather than a subclassable pyClass, since the evaluator has no
// mechanism to bind native Go methods through user subclass MRO the way pyFunction methods bind.
func buildUnittestModule(ctx *Context) pyObject {
	m := newModule("unittest")
	m.set("TestCase", nativeFn("TestCase", func(ctx *Context, args *callArgs) pyObject {
		return &pyTestCase{}
	}))
	return m
}

type pyTestCase struct{}

func (t *pyTestCase) Type() string   { return "TestCase" }
func (t *pyTestCase) IsTruthy() bool { return true }
func (t *pyTestCase) String() string { return "<unittest.TestCase>" }
func (t *pyTestCase) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'TestCase' and '%s'", operator, operand.Type()))
}
func (t *pyTestCase) Property(ctx *Context, name string) (pyObject, bool) {
	fail := func(msg string) { panic(ctx.newException("AssertionError", msg)) }
	switch name {
	case "assertEqual":
		return nativeFn(name, func(ctx *Context, args *callArgs) pyObject {
			if !pyObjectsEqual(ctx, args.arg(0), args.arg(1)) {
				fail(fmt.Sprintf("%s != %s", reprOf(args.arg(0)), reprOf(args.arg(1))))
			}
			return None
		}), true
	case "assertTrue":
		return nativeFn(name, func(ctx *Context, args *callArgs) pyObject {
			if !isTruthy(ctx, args.arg(0)) {
				fail(fmt.Sprintf("%s is not true", reprOf(args.arg(0))))
			}
			return None
		}), true
	case "assertFalse":
		return nativeFn(name, func(ctx *Context, args *callArgs) pyObject {
			if isTruthy(ctx, args.arg(0)) {
				fail(fmt.Sprintf("%s is not false", reprOf(args.arg(0))))
			}
			return None
		}), true
	case "assertRaises":
		return nativeFn(name, func(ctx *Context, args *callArgs) pyObject {
			className, _ := args.arg(0).(*pyClass)
			fn := args.arg(1)
			caught := func() (sig *exceptionSignal) {
				defer func() {
					if r := recover(); r != nil {
						if es, ok := r.(*exceptionSignal); ok {
							sig = es
							return
						}
						panic(r)
					}
				}()
				rest := newCallArgs()
				if len(args.positional) > 2 {
					rest.positional = args.positional[2:]
				}
				callValue(ctx, fn, rest)
				return nil
			}()
			if caught == nil {
				fail("expected exception was not raised")
			} else if className != nil && !caught.exc.isInstanceOfName(className.name) {
				fail(fmt.Sprintf("expected %s, got %s", className.name, caught.exc.class.name))
			}
			return None
		}), true
	}
	return nil, false
}

// jinja2Template renders {{ name }}-style interpolation against keyword arguments, the minimal
// slice of Jinja2's templating contract a sandboxed evaluator can expose without a real template
// engine dependency in the corpus.
var jinja2Var = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

func buildJinja2Module(ctx *Context) pyObject {
	m := newModule("jinja2")
	m.set("Template", nativeFn("Template", func(ctx *Context, args *callArgs) pyObject {
		src, _ := args.arg(0).(pyString)
		return &pyJinjaTemplate{src: string(src)}
	}))
	return m
}

type pyJinjaTemplate struct {
	src string
}

func (t *pyJinjaTemplate) Type() string   { return "jinja2.Template" }
func (t *pyJinjaTemplate) IsTruthy() bool { return true }
func (t *pyJinjaTemplate) String() string { return "<jinja2.Template>" }
func (t *pyJinjaTemplate) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'jinja2.Template' and '%s'", operator, operand.Type()))
}
func (t *pyJinjaTemplate) Property(ctx *Context, name string) (pyObject, bool) {
	if name != "render" {
		return nil, false
	}
	return nativeFn("render", func(ctx *Context, args *callArgs) pyObject {
		out := jinja2Var.ReplaceAllStringFunc(t.src, func(match string) string {
			key := strings.TrimSpace(match[2 : len(match)-2])
			if v, ok := args.keyword[key]; ok {
				return strOf(ctx, v)
			}
			return ""
		})
		return pyString(out)
	}), true
}

// buildMarkdownModule implements the small, uncontroversial slice of Markdown (headers, bold,
// italic, paragraphs) via regexp rather than a full CommonMark parser, matching the "contract,
// not fidelity" scope spec §1 sets for stdlib modules.
func buildMarkdownModule(ctx *Context) pyObject {
	m := newModule("markdown")
	m.set("markdown", nativeFn("markdown", func(ctx *Context, args *callArgs) pyObject {
		text, _ := args.arg(0).(pyString)
		return pyString(renderMarkdown(string(text)))
	}))
	return m
}

var (
	mdHeader = regexp.MustCompile(`(?m)^(#{1,6})\s+(.*)$`)
	mdBold   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalic = regexp.MustCompile(`\*(.+?)\*`)
)

func renderMarkdown(src string) string {
	out := mdHeader.ReplaceAllStringFunc(src, func(line string) string {
		groups := mdHeader.FindStringSubmatch(line)
		level := len(groups[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, groups[2], level)
	})
	out = mdBold.ReplaceAllString(out, "<strong>$1</strong>")
	out = mdItalic.ReplaceAllString(out, "<em>$1</em>")
	var paragraphs []string
	for _, para := range strings.Split(out, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if strings.HasPrefix(para, "<h") {
			paragraphs = append(paragraphs, para)
		} else {
			paragraphs = append(paragraphs, "<p>"+para+"</p>")
		}
	}
	return strings.Join(paragraphs, "\n")
}

// buildFastAPIModule backs a toy route registrar: enough of FastAPI's decorator contract
// (app.get(path)/app.post(path) registering a handler) for a script to exercise routing without a
// real ASGI server, matching spec §4.7's "registered static module" requirement rather than a
// functioning HTTP framework (the HTTP dispatch adapter itself is explicitly out of scope, spec
// §1).
func buildFastAPIModule(ctx *Context) pyObject {
	m := newModule("fastapi")
	m.set("FastAPI", nativeFn("FastAPI", func(ctx *Context, args *callArgs) pyObject {
		return &pyFastAPIApp{routes: map[string]pyObject{}}
	}))
	return m
}

type pyFastAPIApp struct {
	routes map[string]pyObject
}

func (a *pyFastAPIApp) Type() string   { return "FastAPI" }
func (a *pyFastAPIApp) IsTruthy() bool { return true }
func (a *pyFastAPIApp) String() string { return "<FastAPI app>" }
func (a *pyFastAPIApp) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'FastAPI' and '%s'", operator, operand.Type()))
}
func (a *pyFastAPIApp) register(method string) *goBuiltin {
	return nativeFn(method, func(ctx *Context, args *callArgs) pyObject {
		path, _ := args.arg(0).(pyString)
		key := method + " " + string(path)
		return nativeFn("route", func(ctx *Context, args *callArgs) pyObject {
			handler := args.arg(0)
			a.routes[key] = handler
			return handler
		})
	})
}
func (a *pyFastAPIApp) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "get":
		return a.register("GET"), true
	case "post":
		return a.register("POST"), true
	case "put":
		return a.register("PUT"), true
	case "delete":
		return a.register("DELETE"), true
	case "route_for":
		return nativeFn("route_for", func(ctx *Context, args *callArgs) pyObject {
			method, _ := args.arg(0).(pyString)
			path, _ := args.arg(1).(pyString)
			if handler, ok := a.routes[string(method)+" "+string(path)]; ok {
				return handler
			}
			return None
		}), true
	}
	return nil, false
}

// buildPydanticModule exposes BaseModel as a bare subclassable class (like objectClass): user
// subclasses define their own `__init__`/fields exactly as they would any other class, getting
// pydantic's "declare a model, construct it with kwargs" contract through the evaluator's existing
// class machinery rather than a bespoke validation layer.
func buildPydanticModule(ctx *Context) pyObject {
	m := newModule("pydantic")
	base, err := newPyClass("BaseModel", []*pyClass{objectClass}, map[string]pyObject{})
	if err != nil {
		panic(err)
	}
	m.set("BaseModel", base)
	return m
}
