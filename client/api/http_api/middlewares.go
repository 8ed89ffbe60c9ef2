package http_api

import (
	"fmt"
	"net/http"
	"time"

	. "github.com/labstack/echo/v4"

	cs "github.com/lidofinance/govtx/client/api/http_api/context_service"
	"github.com/lidofinance/govtx/client/modules/logger"
)

func contextServiceMiddleware(next HandlerFunc) HandlerFunc {
	return func(ctx Context) error {
		return next(cs.New(ctx))
	}
}

func requestLoggerMiddleware(l logger.Logger) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			l.Debug("%s %s %d %s", c.Request().Method, c.Request().URL.Path,
				c.Response().Status, time.Since(start))
			return nil
		}
	}
}

// Custom error handler
func customHTTPErrorHandler(err error, c Context) {
	code := http.StatusInternalServerError
	csError, ok := err.(*cs.CSErrorResp)
	if !ok {
		if he, ok := err.(*HTTPError); ok {
			code = he.Code
			csError = &cs.CSErrorResp{
				Result:       struct{}{},
				ErrorMessage: fmt.Sprintf("%v", he.Message),
			}
		} else {
			csError = &cs.CSErrorResp{
				Result:       struct{}{},
				ErrorMessage: http.StatusText(http.StatusInternalServerError),
			}
		}
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
	} else {
		_ = c.JSON(code, csError)
	}
}
