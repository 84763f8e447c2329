package dedup

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/dedup"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var validate = validator.New()

// Register registers deduplication and merge routes
func Register(g *echo.Group) {
	g.GET("/duplicates", ListDuplicates)
	g.GET("/duplicates/suggestions", ListSuggestions)
	g.POST("/merges", ExecuteMerge)
	g.POST("/merges/batch", ExecuteBatch)
	g.POST("/merges/run", RunAll)
}

// ListDuplicates returns groups of clients sharing a normalized contact key
func ListDuplicates(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.ListDuplicates")
	defer span.End()

	mode, err := models.ParseMatchMode(c.QueryParam("mode"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, service, err := ectoinject.GetContext[*dedup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup service")
	}

	groups, err := service.FindGroups(ctx, mode, limit)
	if err != nil {
		if models.IsStoreUnavailable(err) {
			return httperror.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}

// ListSuggestions returns a reviewable merge plan per duplicate group
func ListSuggestions(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.ListSuggestions")
	defer span.End()

	mode, err := models.ParseMatchMode(c.QueryParam("mode"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	strategy, err := models.ParseMergeStrategy(c.QueryParam("strategy"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, service, err := ectoinject.GetContext[*dedup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup service")
	}

	suggestions, err := service.SuggestAll(ctx, mode, strategy, limit)
	if err != nil {
		if models.IsStoreUnavailable(err) {
			return httperror.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// ExecuteMerge consolidates the listed duplicates into the primary client
func ExecuteMerge(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.ExecuteMerge")
	defer span.End()

	var req models.MergeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*dedup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup service")
	}

	result, err := service.Merge(ctx, models.MergeInstruction{
		PrimaryID:    req.PrimaryID,
		DuplicateIDs: req.DuplicateIDs,
	}, req.DryRun)
	if err != nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	status := http.StatusOK
	if result.Error != nil && result.Error.Kind == models.ErrorKindPrimaryNotFound {
		status = http.StatusNotFound
	}
	return c.JSON(status, result)
}

// ExecuteBatch runs several merge instructions in one call
func ExecuteBatch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.ExecuteBatch")
	defer span.End()

	var req models.BatchMergeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*dedup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup service")
	}

	results, err := service.MergeBatch(ctx, req.Instructions, req.DryRun)
	if err != nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

// RunAll discovers every duplicate group and merges (or previews) all of them
func RunAll(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "dedup_handler.RunAll")
	defer span.End()

	var req models.RunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	mode, err := models.ParseMatchMode(req.Mode)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	strategy, err := models.ParseMergeStrategy(req.Strategy)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, service, err := ectoinject.GetContext[*dedup.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get dedup service")
	}

	summary, err := service.RunAll(ctx, mode, strategy, req.Limit, req.DryRun)
	if err != nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	return c.JSON(http.StatusOK, summary)
}
