package httpapi

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPIDocument []byte

var (
	docOnce sync.Once
	doc     *openapi3.T
	docErr  error
)

// Document returns the parsed and validated OpenAPI description of the API.
func Document() (*openapi3.T, error) {
	docOnce.Do(func() {
		loader := openapi3.NewLoader()
		d, err := loader.LoadFromData(openAPIDocument)
		if err != nil {
			docErr = fmt.Errorf("httpapi: load openapi document: %w", err)
			return
		}
		if err := d.Validate(loader.Context); err != nil {
			docErr = fmt.Errorf("httpapi: validate openapi document: %w", err)
			return
		}
		doc = d
	})
	return doc, docErr
}

// validateRequest checks the request against the operation declared for
// path. The body is restored for the handler.
func validateRequest(ctx context.Context, d *openapi3.T, path string, req *http.Request) error {
	item := d.Paths.Find(path)
	if item == nil {
		return fmt.Errorf("no operation declared for %s", path)
	}
	op := item.GetOperation(req.Method)
	if op == nil {
		return fmt.Errorf("no %s operation declared for %s", req.Method, path)
	}
	return openapi3filter.ValidateRequest(ctx, &openapi3filter.RequestValidationInput{
		Request: req,
		Route: &routers.Route{
			Spec:      d,
			Path:      path,
			PathItem:  item,
			Method:    req.Method,
			Operation: op,
		},
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	})
}

func validationMiddleware(d *openapi3.T, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validateRequest(c.Request.Context(), d, path, c.Request); err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		c.Next()
	}
}
