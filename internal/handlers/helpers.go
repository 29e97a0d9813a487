package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	xhttp "github.com/careline/message-dispatch/pkg/http"
)

// Authenticator turns the caller's username into an execution identity.
type Authenticator interface {
	AuthenticateByUserName(ctx context.Context, username string) (context.Context, error)
}

var errMissingUser = errors.New("missing X-User-Name header")

// authenticate builds the request's tenant context from the X-User-Name
// header. Upstream infrastructure has already verified the caller.
func authenticate(ctx *xhttp.RequestCtx, auth Authenticator) (context.Context, error) {
	username := string(ctx.Request.Header.Peek("X-User-Name"))
	if username == "" {
		return nil, errMissingUser
	}
	return auth.AuthenticateByUserName(ctx, username)
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	if v, ok := ctx.UserValue(name).(string); ok {
		return v
	}
	return ""
}

func queryInt64(ctx *xhttp.RequestCtx, key string) (int64, bool) {
	v := query(ctx, key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
