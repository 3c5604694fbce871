package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"assetstore.evalgo.org/action"
	"assetstore.evalgo.org/applog"
	"assetstore.evalgo.org/identity"
	"assetstore.evalgo.org/store"
)

// defaultUser/defaultGroup are the identity asserted for a request that
// carries neither a verified JWT nor user/group query parameters — the
// registry's own wildcard entity, the least-privileged identity the
// permission model defines.
const (
	defaultUser  = identity.Wildcard
	defaultGroup = identity.Wildcard
)

// Handler binds a store and identity registry to the HTTP surface
// described by the external-interface contract: resolve "asset" to a
// mount path, merge remaining parameters into action arguments, acquire
// and update, and render the CallResult.
type Handler struct {
	Store    *store.Store
	Registry *identity.Registry
	Bridge   Bridge
	Version  string
}

// Bridge resolves the caller's asserted identity from an incoming request,
// e.g. by verifying a bearer JWT or reading user/group query parameters.
// gateway/identitybridge implements this against echo-jwt; its absence
// (Handler.Bridge == nil) means every request runs as defaultUser/Group
// unless user/group query parameters are present.
type Bridge interface {
	Middleware() echo.MiddlewareFunc
}

// ServeAsset is the single HTTP endpoint: GET or POST, query parameter
// "asset" selects the mount path (absent ⇒ the root index), remaining
// query parameters and form fields become action arguments, and a JSON or
// raw body is merged in under the "body" key.
func (h *Handler) ServeAsset(c echo.Context) error {
	args, err := mergeArgs(c)
	if err != nil {
		return err
	}

	user, group := identityFromContext(c)
	uc := store.NewUpdateContext(h.Store, h.Registry, user, group)

	assetPath := c.QueryParam("asset")
	target, err := h.Store.Acquire(uc, assetPath, nil)
	if err != nil {
		return err
	}

	result := store.Update(target, uc, args)
	log := applog.Base.WithFields(map[string]interface{}{
		"asset":      assetPath,
		"user":       user,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
	if result.IsError() {
		log.WithField("message", result.Message()).Warn("action returned an error result")
	} else {
		log.Debug("action call completed")
	}

	return writeResult(c, uc, result)
}

// mergeArgs builds the argument map per the external-interface contract:
// query parameters and (for POST) form fields are merged; a JSON body
// appears at "body" already decoded, any other content type appears as a
// raw byte buffer at "body".
func mergeArgs(c echo.Context) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	for key, values := range c.QueryParams() {
		if key == "asset" {
			continue
		}
		if len(values) == 1 {
			args[key] = values[0]
		} else {
			args[key] = values
		}
	}

	req := c.Request()
	if req.Method != http.MethodPost {
		return args, nil
	}

	ct := req.Header.Get(echo.HeaderContentType)
	switch {
	case ct == echo.MIMEApplicationForm || ct == echo.MIMEMultipartForm:
		if err := req.ParseForm(); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed form body")
		}
		for key, values := range req.PostForm {
			if len(values) == 1 {
				args[key] = values[0]
			} else {
				args[key] = values
			}
		}
	case ct == echo.MIMEApplicationJSON:
		var body interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && err != io.EOF {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "malformed JSON body")
		}
		args["body"] = body
	default:
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
		}
		if len(raw) > 0 {
			args["body"] = raw
		}
	}
	return args, nil
}

// identityFromContext reads whatever identitybridge.Middleware stashed on
// the echo context, falling back to user/group query parameters, and
// finally to the wildcard entity.
func identityFromContext(c echo.Context) (user, group string) {
	user, group = defaultUser, defaultGroup
	if u, ok := c.Get("assetstore_user").(string); ok && u != "" {
		user = u
	} else if u := c.QueryParam("user"); u != "" {
		user = u
	}
	if g, ok := c.Get("assetstore_group").(string); ok && g != "" {
		group = g
	} else if g := c.QueryParam("group"); g != "" {
		group = g
	}
	return user, group
}

// writeResult renders result per the response contract: a non-JSON
// mimetype set by the action on the update context is honored verbatim
// (the raw value is written with that content type); otherwise the result
// is JSON-encoded.
func writeResult(c echo.Context, uc *store.UpdateContext, result *action.CallResult) error {
	if result.IsError() {
		return errorFromResult(result)
	}

	if uc.Mimetype != "" && uc.Mimetype != echo.MIMEApplicationJSON {
		switch v := result.Value().(type) {
		case string:
			return c.Blob(http.StatusOK, uc.Mimetype, []byte(v))
		case []byte:
			return c.Blob(http.StatusOK, uc.Mimetype, v)
		default:
			return c.JSON(http.StatusOK, v)
		}
	}
	return c.JSON(http.StatusOK, result.Value())
}

// errorFromResult turns an Error CallResult into the echo error rendered
// by CustomHTTPErrorHandler, carrying the message/exception/stacktrace
// triple the external-interface contract specifies.
func errorFromResult(result *action.CallResult) error {
	return &StoreError{
		Status:    http.StatusInternalServerError,
		Message:   result.Message(),
		Exception: result.ExceptionImage(),
		Stack:     result.StackTrace(),
	}
}

// StoreError is the structured error the gateway renders for both
// store-level errors (propagated from Acquire/Mkdir/Remove) and
// action-level Error results.
type StoreError struct {
	Status    int
	Message   string
	Exception string
	Stack     string
}

func (e *StoreError) Error() string { return e.Message }

// classifyStoreError maps the store package's sentinel error kinds onto
// HTTP status codes, per the error-handling design's kind vocabulary.
func classifyStoreError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidArgument), errors.Is(err, store.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, action.ErrNoVariant):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrReloadFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
