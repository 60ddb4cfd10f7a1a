package interp

import "strings"

// pyFileHandle is the value `open()` returns (spec §6): a thin wrapper over the host's Filesystem
// that buffers written bytes until close, matching MemFilesystem's whole-value Write contract and
// letting a sandboxed real-directory backend batch a file's writes into one call.
type pyFileHandle struct {
	ctx     *Context
	path    string
	mode    string
	closed  bool
	data    []byte
	pos     int
	pending strings.Builder
}

func newFileHandle(ctx *Context, path, mode string) *pyFileHandle {
	h := &pyFileHandle{ctx: ctx, path: path, mode: mode}
	if strings.Contains(mode, "r") {
		data, err := ctx.Filesystem.Read(path)
		if err != nil {
			panic(ctx.newException("FileNotFoundError", path+": "+err.Error()))
		}
		h.data = data
	}
	if strings.Contains(mode, "a") {
		if data, err := ctx.Filesystem.Read(path); err == nil {
			h.pending.Write(data)
		}
	}
	return h
}

func (h *pyFileHandle) Type() string   { return "file" }
func (h *pyFileHandle) IsTruthy() bool { return true }
func (h *pyFileHandle) String() string { return "<file '" + h.path + "' mode '" + h.mode + "'>" }

func (h *pyFileHandle) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'file' and '%s'", operator, operand.Type()))
}

func (h *pyFileHandle) Property(ctx *Context, name string) (pyObject, bool) {
	m, ok := fileMethods[name]
	if !ok {
		return nil, false
	}
	return &boundBuiltin{receiver: h, method: m}, true
}

var fileMethods = map[string]*builtinMethod{
	"read": method("read", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		h := receiver.(*pyFileHandle)
		h.ensureReadable(ctx)
		s := string(h.data[h.pos:])
		h.pos = len(h.data)
		return pyString(s)
	}),
	"readline": method("readline", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		h := receiver.(*pyFileHandle)
		h.ensureReadable(ctx)
		rest := string(h.data[h.pos:])
		if rest == "" {
			return pyString("")
		}
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			h.pos += i + 1
			return pyString(rest[:i+1])
		}
		h.pos = len(h.data)
		return pyString(rest)
	}),
	"readlines": method("readlines", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		h := receiver.(*pyFileHandle)
		h.ensureReadable(ctx)
		rest := string(h.data[h.pos:])
		h.pos = len(h.data)
		if rest == "" {
			return newPyList(nil)
		}
		lines := strings.SplitAfter(rest, "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		out := make([]pyObject, len(lines))
		for i, l := range lines {
			out[i] = pyString(l)
		}
		return newPyList(out)
	}),
	"write": method("write", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		h := receiver.(*pyFileHandle)
		if !strings.ContainsAny(h.mode, "wax+") {
			panic(ctx.newException("UnsupportedOperation", "not writable"))
		}
		s, _ := args.arg(0).(pyString)
		h.pending.WriteString(string(s))
		return newPyInt(int64(len(s)))
	}),
	"close": method("close", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		receiver.(*pyFileHandle).closeHandle(ctx)
		return None
	}),
	"__enter__": method("__enter__", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		return receiver
	}),
	"__exit__": method("__exit__", func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		receiver.(*pyFileHandle).closeHandle(ctx)
		return False
	}),
}

func (h *pyFileHandle) ensureReadable(ctx *Context) {
	if !strings.Contains(h.mode, "r") {
		panic(ctx.newException("UnsupportedOperation", "not readable"))
	}
}

func (h *pyFileHandle) closeHandle(ctx *Context) {
	if h.closed {
		return
	}
	h.closed = true
	if h.pending.Len() > 0 || strings.ContainsAny(h.mode, "wa") {
		if err := ctx.Filesystem.Write(h.path, []byte(h.pending.String())); err != nil {
			panic(ctx.newException("OSError", err.Error()))
		}
	}
}
