//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

// MountSwagger serves the OpenAPI UI at /swagger/. The UI fetches
// /swagger/doc.json from the swag-generated docs package: run
// `swag init -g cmd/ensembled/docs.go` and blank-import the generated
// package from cmd/ensembled, otherwise doc.json responds 404.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
