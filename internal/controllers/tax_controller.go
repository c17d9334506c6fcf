package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jpcastilloarce/renata-ai/internal/logger"
	"github.com/jpcastilloarce/renata-ai/internal/services"
)

// TaxController expone los datos tributarios a la aplicación web. Todas las
// rutas requieren token de sesión; el RUT viene del middleware, nunca del
// cliente, para que nadie consulte datos ajenos.
type TaxController struct {
	store services.TaxStore
	log   *logger.Logger
}

func NewTaxController(store services.TaxStore, log *logger.Logger) *TaxController {
	return &TaxController{store: store, log: log}
}

func (tc *TaxController) VentasResumen(ctx *gin.Context) {
	tc.resumen(ctx, services.DireccionVentas)
}

func (tc *TaxController) ComprasResumen(ctx *gin.Context) {
	tc.resumen(ctx, services.DireccionCompras)
}

func (tc *TaxController) VentasDetalle(ctx *gin.Context) {
	tc.detalle(ctx, services.DireccionVentas)
}

func (tc *TaxController) ComprasDetalle(ctx *gin.Context) {
	tc.detalle(ctx, services.DireccionCompras)
}

func (tc *TaxController) resumen(ctx *gin.Context, dir services.Direccion) {
	rut := ctx.GetString("rut")
	periodo := ctx.Query("periodo")
	if periodo == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere el parámetro periodo (YYYY-MM)"})
		return
	}

	rows, err := tc.store.ResumenPeriodo(ctx.Request.Context(), rut, periodo, dir)
	if err != nil {
		tc.log.Error("Error consultando resumen", "rut", rut, "periodo", periodo, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo obtener el resumen"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"periodo": periodo, "data": rows})
}

func (tc *TaxController) detalle(ctx *gin.Context, dir services.Direccion) {
	rut := ctx.GetString("rut")
	periodo := ctx.Query("periodo")
	if periodo == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Se requiere el parámetro periodo (YYYY-MM)"})
		return
	}

	tipoDoc := 0
	if raw := ctx.Query("tipo_doc"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "tipo_doc debe ser numérico"})
			return
		}
		tipoDoc = n
	}

	rows, err := tc.store.DetalleDocumentos(ctx.Request.Context(), rut, periodo, dir, tipoDoc)
	if err != nil {
		tc.log.Error("Error consultando detalle", "rut", rut, "periodo", periodo, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo obtener el detalle"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"periodo": periodo, "data": rows})
}
