package main

import (
	"github.com/hibiken/asynq"

	"photobooth-backend/internal/domains/event/job"
	emailJob "photobooth-backend/internal/infrastructure/email/job"
	"photobooth-backend/internal/shared"
	"photobooth-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	// Maintenance handlers
	sweepExpired *job.SweepExpiredHandler

	// Email handlers, nil khi SMTP tắt
	ownerLink *emailJob.OwnerLinkEmailHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	h := &HandlerRegistry{
		sweepExpired: job.NewSweepExpiredHandler(c.EventService),
	}
	if c.Email != nil {
		h.ownerLink = emailJob.NewOwnerLinkEmailHandler(c.Email)
	}
	return h
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	// Maintenance tasks
	mux.HandleFunc(shared.TypeSweepExpiredEvents, h.sweepExpired.ProcessTask)

	// Email tasks
	if h.ownerLink != nil {
		mux.HandleFunc(shared.TypeSendOwnerLink, h.ownerLink.ProcessTask)
	}
}
