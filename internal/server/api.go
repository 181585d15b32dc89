package server

import (
	"encoding/json"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/marrakech-go/internal/domain"
	"github.com/kapu/marrakech-go/internal/engine"
	"github.com/kapu/marrakech-go/internal/obslog"
	"github.com/kapu/marrakech-go/internal/session"
	"github.com/kapu/marrakech-go/pkg/gamedto"
)

// API is the JSON transport surface for session and game mutations.
// Identity arrives through trusted X-User-* headers set by the identity
// collaborator; the engine performs no credential checks.
type API struct {
	eng *engine.Engine
	reg *session.Registry
	srv *fasthttp.Server
}

func NewAPI(eng *engine.Engine, reg *session.Registry) *API {
	a := &API{eng: eng, reg: reg}
	a.srv = &fasthttp.Server{
		Handler:            a.route,
		Name:               "marrakech-server",
		MaxRequestBodySize: 1 << 16,
	}
	return a
}

func (a *API) ListenAndServe(addr string) error {
	return a.srv.ListenAndServe(addr)
}

func (a *API) Shutdown() error {
	return a.srv.Shutdown()
}

func (a *API) route(ctx *fasthttp.RequestCtx) {
	method := string(ctx.Method())
	path := string(ctx.Path())

	if path == "/api/sessions" {
		switch method {
		case fasthttp.MethodPost:
			a.handleCreate(ctx)
		case fasthttp.MethodGet:
			a.handleList(ctx)
		default:
			writeErr(ctx, 405, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "method not allowed"})
		}
		return
	}

	rest, ok := strings.CutPrefix(path, "/api/sessions/")
	if !ok {
		writeErr(ctx, 404, gamedto.DomainError{Code: gamedto.CodeNotFound, Message: "no such route"})
		return
	}
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeErr(ctx, 404, gamedto.DomainError{Code: gamedto.CodeNotFound, Message: "no such route"})
		return
	}

	switch {
	case action == "" && method == fasthttp.MethodGet:
		a.handleGet(ctx, id)
	case action == "state" && method == fasthttp.MethodGet:
		a.handleState(ctx, id)
	case action == "join" && method == fasthttp.MethodPost:
		a.handleJoin(ctx, id)
	case action == "order" && method == fasthttp.MethodPost:
		a.handleOrder(ctx, id)
	case action == "roll" && method == fasthttp.MethodPost:
		a.handleRoll(ctx, id)
	case action == "move" && method == fasthttp.MethodPost:
		a.handleMove(ctx, id)
	case action == "leave" && method == fasthttp.MethodPost:
		a.handleLeave(ctx, id)
	default:
		writeErr(ctx, 404, gamedto.DomainError{Code: gamedto.CodeNotFound, Message: "no such route"})
	}
}

// caller extracts the authenticated user from the trusted headers.
func caller(ctx *fasthttp.RequestCtx) (domain.User, bool) {
	id := strings.TrimSpace(string(ctx.Request.Header.Peek("X-User-Id")))
	if id == "" {
		return domain.User{}, false
	}
	return domain.User{
		ID:    id,
		Name:  strings.TrimSpace(string(ctx.Request.Header.Peek("X-User-Name"))),
		Email: strings.TrimSpace(string(ctx.Request.Header.Peek("X-User-Email"))),
	}, true
}

func (a *API) handleCreate(ctx *fasthttp.RequestCtx) {
	user, ok := caller(ctx)
	if !ok {
		writeErr(ctx, 401, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "missing identity"})
		return
	}
	var req gamedto.CreateSessionRequest
	if len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeErr(ctx, 400, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "malformed body"})
			return
		}
	}
	s, err := a.reg.Create(ctx, req.Name, user)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 201, toSessionView(s))
}

func (a *API) handleList(ctx *fasthttp.RequestCtx) {
	sessions := a.reg.List()
	views := make([]*gamedto.SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, toSessionView(s))
	}
	writeJSON(ctx, 200, views)
}

func (a *API) handleGet(ctx *fasthttp.RequestCtx, id string) {
	s, err := a.reg.Get(ctx, id)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, toSessionView(s))
}

func (a *API) handleState(ctx *fasthttp.RequestCtx, id string) {
	g, err := a.eng.State(ctx, id)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, toStateView(g))
}

func (a *API) handleJoin(ctx *fasthttp.RequestCtx, id string) {
	user, ok := caller(ctx)
	if !ok {
		writeErr(ctx, 401, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "missing identity"})
		return
	}
	s, err := a.reg.Join(ctx, id, user)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, toSessionView(s))
}

func (a *API) handleOrder(ctx *fasthttp.RequestCtx, id string) {
	if _, ok := caller(ctx); !ok {
		writeErr(ctx, 401, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "missing identity"})
		return
	}
	s, g, err := a.eng.AssignOrder(ctx, id)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, &gamedto.OrderResponse{Session: toSessionView(s), State: toStateView(g)})
}

func (a *API) handleRoll(ctx *fasthttp.RequestCtx, id string) {
	user, ok := caller(ctx)
	if !ok {
		writeErr(ctx, 401, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "missing identity"})
		return
	}
	n, g, err := a.eng.Roll(ctx, id, user.ID)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, &gamedto.RollResponse{Value: n, State: toStateView(g)})
}

func (a *API) handleMove(ctx *fasthttp.RequestCtx, id string) {
	user, ok := caller(ctx)
	if !ok {
		writeErr(ctx, 401, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "missing identity"})
		return
	}
	var req gamedto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeErr(ctx, 400, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "malformed body"})
		return
	}
	dir := domain.Direction(strings.ToLower(strings.TrimSpace(req.Direction)))
	switch dir {
	case domain.DirLeft, domain.DirRight, domain.DirForward:
	default:
		writeErr(ctx, 400, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "direction must be left, right or forward"})
		return
	}
	g, err := a.eng.Move(ctx, id, user.ID, dir)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, toStateView(g))
}

func (a *API) handleLeave(ctx *fasthttp.RequestCtx, id string) {
	user, ok := caller(ctx)
	if !ok {
		writeErr(ctx, 401, gamedto.DomainError{Code: gamedto.CodeBadRequest, Message: "missing identity"})
		return
	}
	g, err := a.eng.Leave(ctx, id, user.ID)
	if err != nil {
		status, de := mapError(err)
		writeErr(ctx, status, de)
		return
	}
	writeJSON(ctx, 200, toStateView(g))
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		obslog.L().Error("api_encode_error", zap.Error(err))
	}
}

func writeErr(ctx *fasthttp.RequestCtx, status int, de gamedto.DomainError) {
	writeJSON(ctx, status, de)
}
