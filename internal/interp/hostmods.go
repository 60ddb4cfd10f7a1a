package interp

import (
	"io"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// buildRequestsModule backs the capability-gated `requests` module (spec §4.6) with a real HTTP
// client, retrying transient failures the way a host-facing script expects a robust HTTP client
// to behave, rather than hand-rolling retry/backoff over net/http.
func buildRequestsModule(ctx *Context) pyObject {
	m := newModule("requests")
	m.set("get", nativeFn("get", func(ctx *Context, args *callArgs) pyObject { return doRequest(ctx, "GET", args) }))
	m.set("post", nativeFn("post", func(ctx *Context, args *callArgs) pyObject { return doRequest(ctx, "POST", args) }))
	return m
}

func doRequest(ctx *Context, method string, args *callArgs) pyObject {
	target, _ := args.arg(0).(pyString)
	u, err := url.Parse(string(target))
	if err != nil {
		panic(ctx.newException("ValueError", "invalid URL: "+err.Error()))
	}
	if !hostAllowed(ctx, u.Hostname()) {
		log.Warningf("blocked %s request to disallowed host %q", method, u.Hostname())
		panic(ctx.newPermissionError("network access to %s is not permitted", u.Hostname()))
	}
	log.Debugf("dispatching %s %s", method, u.String())
	var body io.Reader
	if method == "POST" {
		if data, ok := args.keyword["data"].(pyString); ok {
			body = strings.NewReader(string(data))
		}
	}
	req, err := retryablehttp.NewRequest(method, u.String(), body)
	if err != nil {
		panic(ctx.newException("OSError", err.Error()))
	}
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 3
	ctx.pauseCompute()
	defer ctx.resumeCompute()
	resp, err := client.Do(req)
	if err != nil {
		panic(ctx.newException("ConnectionError", err.Error()))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(ctx.newException("OSError", err.Error()))
	}
	return newResponseObject(resp.StatusCode, string(data))
}

// hostAllowed reports whether host matches one of ctx.AllowedHosts' patterns (spec §4.6's
// network allowlist). A pattern is either an exact host or a `*.suffix` wildcard.
func hostAllowed(ctx *Context, host string) bool {
	for _, pattern := range ctx.AllowedHosts {
		if pattern == host {
			return true
		}
		if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(host, pattern[1:]) {
			return true
		}
	}
	return false
}

type pyResponseObject struct {
	statusCode int
	text       string
}

func newResponseObject(statusCode int, text string) *pyResponseObject {
	return &pyResponseObject{statusCode: statusCode, text: text}
}

func (r *pyResponseObject) Type() string   { return "Response" }
func (r *pyResponseObject) IsTruthy() bool { return r.statusCode < 400 }
func (r *pyResponseObject) String() string { return "<Response [" + itoa(r.statusCode) + "]>" }
func (r *pyResponseObject) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'Response' and '%s'", operator, operand.Type()))
}
func (r *pyResponseObject) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "status_code":
		return newPyInt(int64(r.statusCode)), true
	case "text":
		return pyString(r.text), true
	case "json":
		return nativeFn("json", func(ctx *Context, args *callArgs) pyObject {
			v, _, err := jsonDecode(ctx, strings.TrimSpace(r.text))
			if err != nil {
				panic(ctx.newException("ValueError", "invalid JSON in response body"))
			}
			return v
		}), true
	}
	return nil, false
}

// buildBoto3Module and buildSQLModule back the capability-gated `boto3`/`sql` modules (spec
// §4.6) with minimal in-process implementations: no AWS SDK or database driver appears anywhere
// in the retrieved dependency corpus (see DESIGN.md), so there is no third-party client to wire
// a real backend through, and these stand in as the gate's "capability granted" success path
// exercising the same stub-vs-real branch as requests/boto3/sql in modules.go.

func buildBoto3Module(ctx *Context) pyObject {
	m := newModule("boto3")
	m.set("client", nativeFn("client", func(ctx *Context, args *callArgs) pyObject {
		service, _ := args.arg(0).(pyString)
		return newInMemoryServiceClient(string(service))
	}))
	return m
}

type pyServiceClient struct {
	service string
	store   map[string]pyObject
}

func newInMemoryServiceClient(service string) *pyServiceClient {
	return &pyServiceClient{service: service, store: map[string]pyObject{}}
}

func (c *pyServiceClient) Type() string   { return "ServiceClient" }
func (c *pyServiceClient) IsTruthy() bool { return true }
func (c *pyServiceClient) String() string { return "<" + c.service + " client>" }
func (c *pyServiceClient) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'ServiceClient' and '%s'", operator, operand.Type()))
}
func (c *pyServiceClient) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "put_object", "put_item":
		return nativeFn(name, func(ctx *Context, args *callArgs) pyObject {
			key, _ := args.keyword["Key"].(pyString)
			c.store[string(key)] = args.argOr(0, None)
			return newPyDict()
		}), true
	case "get_object", "get_item":
		return nativeFn(name, func(ctx *Context, args *callArgs) pyObject {
			key, _ := args.keyword["Key"].(pyString)
			v, ok := c.store[string(key)]
			if !ok {
				panic(ctx.newException("KeyError", string(key)))
			}
			return v
		}), true
	}
	return nil, false
}

func buildSQLModule(ctx *Context) pyObject {
	m := newModule("sql")
	m.set("connect", nativeFn("connect", func(ctx *Context, args *callArgs) pyObject {
		return &pySQLConnection{rows: map[string][]pyObject{}}
	}))
	return m
}

type pySQLConnection struct {
	rows map[string][]pyObject
}

func (c *pySQLConnection) Type() string   { return "Connection" }
func (c *pySQLConnection) IsTruthy() bool { return true }
func (c *pySQLConnection) String() string { return "<sql connection>" }
func (c *pySQLConnection) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'Connection' and '%s'", operator, operand.Type()))
}
func (c *pySQLConnection) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "execute":
		return nativeFn("execute", func(ctx *Context, args *callArgs) pyObject {
			query, _ := args.arg(0).(pyString)
			return newPyList(c.rows[string(query)])
		}), true
	case "close":
		return nativeFn("close", func(ctx *Context, args *callArgs) pyObject { return None }), true
	}
	return nil, false
}
