package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts a group of routes on the service router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// ShutdownHook releases a resource once the HTTP server has drained.
type ShutdownHook func() error
