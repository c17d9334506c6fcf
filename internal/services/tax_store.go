package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jpcastilloarce/renata-ai/internal/models"
)

// Direccion distingue las tablas de ventas de las de compras
type Direccion string

const (
	DireccionVentas  Direccion = "ventas"
	DireccionCompras Direccion = "compras"
)

// TaxStore expone consultas de solo lectura sobre la réplica local del RCV.
// Las filas de resumen son un agregado de las de detalle pero se refrescan de
// forma asíncrona; no se debe asumir consistencia entre ambas.
type TaxStore interface {
	// TotalPeriodo suma monto_total del resumen para un período
	TotalPeriodo(ctx context.Context, rut, periodo string, dir Direccion) (total int64, found bool, err error)
	// UltimoPeriodoConDatos retorna el período más reciente con datos de resumen
	UltimoPeriodoConDatos(ctx context.Context, rut string, dir Direccion) (periodo string, total int64, found bool, err error)
	// DetallePeriodo retorna hasta limit documentos ordenados por monto_total
	// descendente; periodo vacío = sin filtro
	DetallePeriodo(ctx context.Context, rut, periodo string, dir Direccion, limit int) ([]models.DetalleRow, error)
	// UltimoPeriodoDetalle retorna el período más reciente con detalle y su cantidad de documentos
	UltimoPeriodoDetalle(ctx context.Context, rut string, dir Direccion) (periodo string, cantidad int, found bool, err error)
	// SumasIVAPeriodo calcula débito fiscal (IVA de ventas_detalle), crédito
	// fiscal (IVA recuperable de compras_detalle) y los totales brutos
	SumasIVAPeriodo(ctx context.Context, rut, periodo string) (debito, credito, totalVentas, totalCompras int64, err error)
	// SumasNetasPeriodo suma los montos netos de resumen de ambas direcciones
	SumasNetasPeriodo(ctx context.Context, rut, periodo string) (ingresos, egresos int64, err error)
	// TopContrapartes agrupa el detalle por contraparte; periodo vacío = sin filtro
	TopContrapartes(ctx context.Context, rut, periodo string, dir Direccion, limit int) ([]models.ContraparteTotal, error)
	// ResumenPeriodo retorna las filas de resumen por tipo de documento
	ResumenPeriodo(ctx context.Context, rut, periodo string, dir Direccion) ([]models.ResumenRow, error)
	// DetalleDocumentos retorna el detalle con filtro opcional por tipo de documento
	DetalleDocumentos(ctx context.Context, rut, periodo string, dir Direccion, tipoDoc int) ([]models.DetalleRow, error)
}

type PgTaxStore struct {
	pool *pgxpool.Pool
}

func NewPgTaxStore(pool *pgxpool.Pool) *PgTaxStore {
	return &PgTaxStore{pool: pool}
}

func resumenTable(dir Direccion) string {
	if dir == DireccionVentas {
		return "ventas_resumen"
	}
	return "compras_resumen"
}

func detalleTable(dir Direccion) string {
	if dir == DireccionVentas {
		return "ventas_detalle"
	}
	return "compras_detalle"
}

func (s *PgTaxStore) TotalPeriodo(ctx context.Context, rut, periodo string, dir Direccion) (int64, bool, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(monto_total), 0), COUNT(*)
		FROM %s
		WHERE rut = $1 AND periodo = $2`, resumenTable(dir))

	var total int64
	var filas int
	if err := s.pool.QueryRow(ctx, query, rut, periodo).Scan(&total, &filas); err != nil {
		return 0, false, &models.LookupFailure{Op: "total_periodo", Err: err}
	}
	return total, filas > 0, nil
}

func (s *PgTaxStore) UltimoPeriodoConDatos(ctx context.Context, rut string, dir Direccion) (string, int64, bool, error) {
	query := fmt.Sprintf(`
		SELECT periodo, SUM(monto_total) AS total
		FROM %s
		WHERE rut = $1
		GROUP BY periodo
		ORDER BY periodo DESC
		LIMIT 1`, resumenTable(dir))

	var periodo string
	var total int64
	err := s.pool.QueryRow(ctx, query, rut).Scan(&periodo, &total)
	if err != nil {
		if isNoRows(err) {
			return "", 0, false, nil
		}
		return "", 0, false, &models.LookupFailure{Op: "ultimo_periodo", Err: err}
	}
	return periodo, total, true, nil
}

func (s *PgTaxStore) DetallePeriodo(ctx context.Context, rut, periodo string, dir Direccion, limit int) ([]models.DetalleRow, error) {
	query := fmt.Sprintf(`
		SELECT tipo_doc, folio, razon_social, monto_neto, monto_iva, monto_iva_recuperable, monto_total, fecha_recepcion
		FROM %s
		WHERE rut = $1 AND ($2 = '' OR periodo = $2)
		ORDER BY monto_total DESC
		LIMIT $3`, detalleTable(dir))

	rows, err := s.pool.Query(ctx, query, rut, periodo, limit)
	if err != nil {
		return nil, &models.LookupFailure{Op: "detalle_periodo", Err: err}
	}
	defer rows.Close()

	var result []models.DetalleRow
	for rows.Next() {
		var r models.DetalleRow
		if err := rows.Scan(&r.TipoDoc, &r.Folio, &r.RazonSocial, &r.MontoNeto, &r.MontoIVA, &r.MontoIVARecuperable, &r.MontoTotal, &r.FechaRecepcion); err != nil {
			return nil, &models.LookupFailure{Op: "detalle_periodo", Err: err}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *PgTaxStore) UltimoPeriodoDetalle(ctx context.Context, rut string, dir Direccion) (string, int, bool, error) {
	query := fmt.Sprintf(`
		SELECT periodo, COUNT(*) AS cantidad
		FROM %s
		WHERE rut = $1
		GROUP BY periodo
		ORDER BY periodo DESC
		LIMIT 1`, detalleTable(dir))

	var periodo string
	var cantidad int
	err := s.pool.QueryRow(ctx, query, rut).Scan(&periodo, &cantidad)
	if err != nil {
		if isNoRows(err) {
			return "", 0, false, nil
		}
		return "", 0, false, &models.LookupFailure{Op: "ultimo_periodo_detalle", Err: err}
	}
	return periodo, cantidad, true, nil
}

func (s *PgTaxStore) SumasIVAPeriodo(ctx context.Context, rut, periodo string) (int64, int64, int64, int64, error) {
	var debito, totalVentas int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(monto_iva), 0), COALESCE(SUM(monto_total), 0)
		FROM ventas_detalle
		WHERE rut = $1 AND periodo = $2`, rut, periodo).Scan(&debito, &totalVentas)
	if err != nil {
		return 0, 0, 0, 0, &models.LookupFailure{Op: "sumas_iva_ventas", Err: err}
	}

	var credito, totalCompras int64
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(monto_iva_recuperable), 0), COALESCE(SUM(monto_total), 0)
		FROM compras_detalle
		WHERE rut = $1 AND periodo = $2`, rut, periodo).Scan(&credito, &totalCompras)
	if err != nil {
		return 0, 0, 0, 0, &models.LookupFailure{Op: "sumas_iva_compras", Err: err}
	}

	return debito, credito, totalVentas, totalCompras, nil
}

func (s *PgTaxStore) SumasNetasPeriodo(ctx context.Context, rut, periodo string) (int64, int64, error) {
	var ingresos int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(monto_neto), 0)
		FROM ventas_resumen
		WHERE rut = $1 AND periodo = $2`, rut, periodo).Scan(&ingresos)
	if err != nil {
		return 0, 0, &models.LookupFailure{Op: "sumas_netas_ventas", Err: err}
	}

	var egresos int64
	err = s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(monto_neto), 0)
		FROM compras_resumen
		WHERE rut = $1 AND periodo = $2`, rut, periodo).Scan(&egresos)
	if err != nil {
		return 0, 0, &models.LookupFailure{Op: "sumas_netas_compras", Err: err}
	}

	return ingresos, egresos, nil
}

func (s *PgTaxStore) TopContrapartes(ctx context.Context, rut, periodo string, dir Direccion, limit int) ([]models.ContraparteTotal, error) {
	query := fmt.Sprintf(`
		SELECT razon_social, SUM(monto_total) AS total, COUNT(*) AS documentos
		FROM %s
		WHERE rut = $1 AND ($2 = '' OR periodo = $2)
		GROUP BY razon_social
		ORDER BY total DESC
		LIMIT $3`, detalleTable(dir))

	rows, err := s.pool.Query(ctx, query, rut, periodo, limit)
	if err != nil {
		return nil, &models.LookupFailure{Op: "top_contrapartes", Err: err}
	}
	defer rows.Close()

	var result []models.ContraparteTotal
	for rows.Next() {
		var c models.ContraparteTotal
		if err := rows.Scan(&c.RazonSocial, &c.Total, &c.Documentos); err != nil {
			return nil, &models.LookupFailure{Op: "top_contrapartes", Err: err}
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PgTaxStore) ResumenPeriodo(ctx context.Context, rut, periodo string, dir Direccion) ([]models.ResumenRow, error) {
	query := fmt.Sprintf(`
		SELECT tipo_doc, codigo_tipo, cantidad_docs, monto_neto, monto_iva, monto_total
		FROM %s
		WHERE rut = $1 AND periodo = $2`, resumenTable(dir))

	rows, err := s.pool.Query(ctx, query, rut, periodo)
	if err != nil {
		return nil, &models.LookupFailure{Op: "resumen_periodo", Err: err}
	}
	defer rows.Close()

	var result []models.ResumenRow
	for rows.Next() {
		var r models.ResumenRow
		if err := rows.Scan(&r.TipoDoc, &r.CodigoTipo, &r.CantidadDocs, &r.MontoNeto, &r.MontoIVA, &r.MontoTotal); err != nil {
			return nil, &models.LookupFailure{Op: "resumen_periodo", Err: err}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *PgTaxStore) DetalleDocumentos(ctx context.Context, rut, periodo string, dir Direccion, tipoDoc int) ([]models.DetalleRow, error) {
	query := fmt.Sprintf(`
		SELECT tipo_doc, folio, razon_social, monto_neto, monto_iva, monto_iva_recuperable, monto_total, fecha_recepcion
		FROM %s
		WHERE rut = $1 AND periodo = $2 AND ($3 = 0 OR tipo_doc = $3)
		ORDER BY fecha_recepcion DESC`, detalleTable(dir))

	rows, err := s.pool.Query(ctx, query, rut, periodo, tipoDoc)
	if err != nil {
		return nil, &models.LookupFailure{Op: "detalle_documentos", Err: err}
	}
	defer rows.Close()

	var result []models.DetalleRow
	for rows.Next() {
		var r models.DetalleRow
		if err := rows.Scan(&r.TipoDoc, &r.Folio, &r.RazonSocial, &r.MontoNeto, &r.MontoIVA, &r.MontoIVARecuperable, &r.MontoTotal, &r.FechaRecepcion); err != nil {
			return nil, &models.LookupFailure{Op: "detalle_documentos", Err: err}
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
