package api

import (
	"errors"
	"net/http"

	"github.com/milhasrod/gateway/internal/api/ops"
	"github.com/milhasrod/gateway/internal/api/portal"
)

// Service represents the portal & ops API service
type Service struct {
	Portal *portal.Service
	Ops    *ops.Service
}

// Startup starts up the portal & ops APIs
func (service *Service) Startup(errs chan<- error) {
	if service.Portal != nil {
		go func() {
			if err := service.Portal.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}
	if service.Ops != nil {
		go func() {
			if err := service.Ops.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- err
			}
		}()
	}
}

// Shutdown shuts down the portal & ops APIs
func (service *Service) Shutdown() {
	if service.Portal != nil {
		service.Portal.Shutdown()
	}
	if service.Ops != nil {
		service.Ops.Shutdown()
	}
}
