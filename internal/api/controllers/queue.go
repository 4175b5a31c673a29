package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"hanidl/internal/app"
	"hanidl/internal/domain"
	"hanidl/internal/engine"
)

type QueueController struct {
	App   *app.Context
	Queue *engine.QueueManager
}

type addRequest struct {
	URL        string `json:"url"`
	Resolution string `json:"resolution"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// List returns the live queue, active item first.
func (ctrl *QueueController) List(c *echo.Context) error {
	return c.JSON(http.StatusOK, ctrl.Queue.GetAllItems())
}

// Add validates and queues a page URL for download.
func (ctrl *QueueController) Add(c *echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	item, err := ctrl.Queue.Add(req.URL, req.Resolution)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidURL) {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusCreated, item)
}

func (ctrl *QueueController) Get(c *echo.Context) error {
	item, ok := ctrl.Queue.GetItem(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "queue item not found"})
	}
	return c.JSON(http.StatusOK, item)
}

// Cancel aborts a queued or running item. The partial output file is left
// in place; there is no cleanup guarantee on cancellation.
func (ctrl *QueueController) Cancel(c *echo.Context) error {
	if !ctrl.Queue.Cancel(c.Param("id")) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "queue item not found or already finished"})
	}
	return c.NoContent(http.StatusNoContent)
}

// History lists finished jobs from the store, newest first.
func (ctrl *QueueController) History(c *echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	recs, err := ctrl.App.Store.ListJobs(limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	if recs == nil {
		recs = []*domain.JobRecord{}
	}
	return c.JSON(http.StatusOK, recs)
}
