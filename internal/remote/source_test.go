package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/records"
)

func newSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(srv.URL + "/api/")
	require.NoError(t, err)
	return s
}

func TestFetchCatalogList(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/productos/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"id": 7, "nombre": "Gadget", "descripcion": null, "sku": "G-1", "costo_unitario": "5.00",
			 "activo": 1, "fecha_creacion": "2024-01-01T00:00:00Z", "fecha_actualizacion": "2024-01-02T03:04:05.123456+00:00"},
			{"id": 8, "nombre": "Widget", "descripcion": "", "sku": null, "costo_unitario": 10.5,
			 "activo": "false", "fecha_actualizacion": "2024-01-03T00:00:00Z"}
		]`)
	})

	recs, err := s.FetchCatalog(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	gadget := recs[0]
	assert.Equal(t, records.RemoteID(7), gadget.RemoteID)
	assert.Equal(t, "Gadget", gadget.Name)
	assert.Nil(t, gadget.Description)
	assert.Equal(t, "G-1", *gadget.ExternalCode)
	assert.Equal(t, 5.0, gadget.UnitCost)
	assert.True(t, gadget.Active)
	assert.True(t, gadget.UpdatedAt.Time.Equal(time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)))

	widget := recs[1]
	require.NotNil(t, widget.Description)
	assert.Equal(t, "", *widget.Description)
	assert.Nil(t, widget.ExternalCode)
	assert.Equal(t, 10.5, widget.UnitCost)
	assert.False(t, widget.Active)
	assert.True(t, widget.CreatedAt.IsZero())
}

func TestFetchCatalogPaginated(t *testing.T) {
	var base string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"next": null, "results": [{"id": 2, "nombre": "B", "costo_unitario": "1", "fecha_actualizacion": "2024-01-01T00:00:00Z"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"next": "`+base+`/productos/?page=2", "results": [{"id": 1, "nombre": "A", "costo_unitario": "1", "fecha_actualizacion": "2024-01-01T00:00:00Z"}]}`)
	}))
	defer srv.Close()
	base = srv.URL

	s, err := New(srv.URL)
	require.NoError(t, err)

	recs, err := s.FetchCatalog(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, records.RemoteID(1), recs[0].RemoteID)
	assert.Equal(t, records.RemoteID(2), recs[1].RemoteID)
	assert.True(t, recs[0].Active, "activo defaults to true")
}

func TestFetchCatalogRelativeNext(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/productos/", r.URL.Path)
		if r.URL.Query().Get("page") == "2" {
			_, _ = io.WriteString(w, `{"next": null, "results": [{"id": 2, "nombre": "B", "costo_unitario": "1", "fecha_actualizacion": "2024-01-01T00:00:00Z"}]}`)
			return
		}
		_, _ = io.WriteString(w, `{"next": "?page=2", "results": [{"id": 1, "nombre": "A", "costo_unitario": "1", "fecha_actualizacion": "2024-01-01T00:00:00Z"}]}`)
	})

	recs, err := s.FetchCatalog(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestFetchCatalogRefusesForeignNext(t *testing.T) {
	var leaked atomic.Bool
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		leaked.Store(true)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer other.Close()

	s := newSource(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"next": "`+other.URL+`/productos/?page=2", "results": []}`)
	})

	_, err := s.FetchCatalog(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, "Malformed", errors.Kind(err))
	assert.False(t, leaked.Load(), "credential sent to another host")
}

func TestFetchCatalogErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   string
	}{
		{"unauthorized", 401, `{"detail": "Given token not valid"}`, "AuthFailure"},
		{"server error", 500, `boom`, "TransportFailure"},
		{"not json", 200, `<html>`, "Malformed"},
		{"missing timestamp", 200, `[{"id": 1, "nombre": "A", "costo_unitario": "1"}]`, "Malformed"},
		{"bad cost", 200, `[{"id": 1, "nombre": "A", "costo_unitario": "abc", "fecha_actualizacion": "2024-01-01T00:00:00Z"}]`, "Malformed"},
		{"unexpected object", 200, `{"foo": 1}`, "Malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSource(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := s.FetchCatalog(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tt.kind, errors.Kind(err))
		})
	}
}

func TestFetchCatalogUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := New(url)
	require.NoError(t, err)

	_, err = s.FetchCatalog(context.Background(), "tok")
	assert.Equal(t, "TransportFailure", errors.Kind(err))
}

func TestCreateRecord(t *testing.T) {
	var got map[string]any
	s := newSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "store-1:5", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": 99, "nombre": "Widget"}`)
	})

	id, err := s.CreateRecord(context.Background(), "tok", records.Fields{
		Name:         "Widget",
		ExternalCode: records.Ptr("W-1"),
		UnitCost:     10,
		Active:       true,
	}, "store-1:5")
	require.NoError(t, err)
	assert.Equal(t, records.RemoteID(99), id)

	assert.Equal(t, "Widget", got["nombre"])
	assert.Equal(t, "W-1", got["sku"])
	assert.Nil(t, got["descripcion"])
	assert.Equal(t, "10", got["costo_unitario"])
	assert.Equal(t, true, got["activo"])
}

func TestCreateRecordRejected(t *testing.T) {
	s := newSource(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"sku": ["producto with this sku already exists."]}`)
	})

	_, err := s.CreateRecord(context.Background(), "tok", records.Fields{Name: "Widget"}, "k")
	require.Error(t, err)
	assert.True(t, errors.IsRejected(err))

	var rejected *errors.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "sku: producto with this sku already exists.", rejected.Reason)
}

func TestNewValidation(t *testing.T) {
	_, err := New("")
	assert.True(t, errors.IsValidationError(err))

	_, err = New("ftp://example.com")
	assert.True(t, errors.IsValidationError(err))
}
