package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "usuario no autenticado")
	errInvalidToken   = echo.NewHTTPError(http.StatusUnauthorized, "token inválido o expirado")
	errNeedsConfirm   = "se requiere confirm=true: la importación reemplaza todos los datos"
	errNoRecipients   = "no hay destinatarios para el informe"
	msgStoreFailure   = "no se pudo acceder a los datos"
	msgStoreReloading = "los datos quedaron incompletos; recargue antes de continuar"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		owner, _ := getContextOwner(ctx)

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.PreconditionError:
			logger.Info(origErr.Message, owner)
			code = http.StatusUnprocessableEntity
			message = origErr.Message
		case *core.StoreError:
			logger.Error(msgStoreFailure, err, owner)
			code = http.StatusServiceUnavailable
			msg := msgStoreFailure
			if origErr.Inconsistent {
				msg = msgStoreReloading
			}
			message = echo.Map{"error": msg, "reload": origErr.Inconsistent}
		default:
			if origErr == compliance.ErrTeacherNotFound {
				code = http.StatusNotFound
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), owner)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			// structured bodies keep their keys (reload); the detail is added next to them
			if m, ok := message.(echo.Map); ok {
				m["detail"] = err.Error()
			} else {
				message = err.Error()
			}
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
