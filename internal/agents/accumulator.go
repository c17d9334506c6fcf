package agents

// Accumulator transporta estado entre fragmentos del mismo mensaje, en orden
// izquierda a derecha. El caso típico: "¿quién es mi mayor proveedor? y
// muéstrame esa lista" — el primer fragmento fija ProveedorPrincipal y el
// segundo lo consume como filtro. Vive solo durante un mensaje; nunca se
// comparte entre requests.
type Accumulator struct {
	// ProveedorPrincipal es la razón social fijada por la sub-variante
	// "mayor proveedor" de detalle_compras
	ProveedorPrincipal string
	// Periodo es el período usado por el fragmento que fijó el proveedor
	Periodo string
}
