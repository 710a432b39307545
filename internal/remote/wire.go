package remote

import (
	"time"

	"github.com/agentstation/utc"
	"github.com/shopspring/decimal"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

// product is the wire form of a catalog record in the remote API.
type product struct {
	ID                 int64           `json:"id"`
	Nombre             string          `json:"nombre"`
	Descripcion        *string         `json:"descripcion"`
	SKU                *string         `json:"sku"`
	CostoUnitario      decimal.Decimal `json:"costo_unitario"`
	Activo             *records.Flag   `json:"activo"`
	FechaCreacion      string          `json:"fecha_creacion,omitempty"`
	FechaActualizacion string          `json:"fecha_actualizacion,omitempty"`
}

// createRequest is the body of a creation request. Identifiers and
// timestamps are assigned by the remote.
type createRequest struct {
	Nombre        string          `json:"nombre"`
	Descripcion   *string         `json:"descripcion"`
	SKU           *string         `json:"sku"`
	CostoUnitario decimal.Decimal `json:"costo_unitario"`
	Activo        bool            `json:"activo"`
}

// page is a paginated list response.
type page struct {
	Next    *string   `json:"next"`
	Results []product `json:"results"`
}

func newCreateRequest(fields records.Fields) createRequest {
	return createRequest{
		Nombre:        fields.Name,
		Descripcion:   fields.Description,
		SKU:           fields.ExternalCode,
		CostoUnitario: decimal.NewFromFloat(fields.UnitCost),
		Activo:        fields.Active,
	}
}

func (p product) toRecord() (records.RemoteRecord, error) {
	if p.ID == 0 {
		return records.RemoteRecord{}, errors.NewParseError("json", "productos", "record without id", nil)
	}

	updatedAt, err := parseTimestamp(p.FechaActualizacion)
	if err != nil {
		return records.RemoteRecord{}, err
	}
	if updatedAt.IsZero() {
		return records.RemoteRecord{}, errors.NewParseError("json", "productos", "record without fecha_actualizacion", nil)
	}
	createdAt, err := parseTimestamp(p.FechaCreacion)
	if err != nil {
		return records.RemoteRecord{}, err
	}

	// The remote defaults activo to true when omitted.
	active := true
	if p.Activo != nil {
		active = bool(*p.Activo)
	}

	return records.RemoteRecord{
		RemoteID: records.RemoteID(p.ID),
		Fields: records.Fields{
			Name:         p.Nombre,
			Description:  p.Descripcion,
			ExternalCode: p.SKU,
			UnitCost:     p.CostoUnitario.InexactFloat64(),
			Active:       active,
		},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func parseTimestamp(s string) (utc.Time, error) {
	if s == "" {
		return utc.Time{}, nil
	}
	t, err := utc.Parse(time.RFC3339Nano, s)
	if err != nil {
		return utc.Time{}, errors.NewParseError("timestamp", "productos", err.Error(), err)
	}
	return t, nil
}
