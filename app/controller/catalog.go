package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/stagedoor-labs/kiosk-payments/app/service"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

type CatalogController struct {
	catalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

func (c *CatalogController) ListProps(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"props": c.catalogService.Props()})
}

func (c *CatalogController) GetProp(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "invalid prop id"})
	}

	prop, ok := c.catalogService.PropByID(id)
	if !ok {
		return ctx.JSON(http.StatusNotFound, &types.ErrorResponse{Error: "prop not found"})
	}
	return ctx.JSON(http.StatusOK, prop)
}
