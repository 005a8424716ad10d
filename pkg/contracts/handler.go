package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts its routes on a router owned by pkg/app.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
