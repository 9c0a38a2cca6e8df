package router

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

type stubAdapter struct{ brand reading.Brand }

func (s stubAdapter) Brand() reading.Brand              { return s.brand }
func (s stubAdapter) Supports(dt reading.DataType) bool { return dt == reading.DataTypeCurrent }
func (s stubAdapter) Fetch(context.Context, vendorapi.Request) (*reading.Reading, error) {
	return &reading.Reading{Brand: s.brand}, nil
}

func newRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(stubAdapter{reading.BrandQube}, stubAdapter{reading.BrandSecure}, stubAdapter{reading.BrandLNT})
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		in   string
		want reading.Brand
	}{
		{"QUBE", reading.BrandQube},
		{"secure", reading.BrandSecure},
		{" LnT ", reading.BrandLNT},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := r.Resolve(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Brand())
		})
	}
}

func TestResolve_Unsupported(t *testing.T) {
	r := newRouter(t)

	for _, brand := range []string{"UNSUPPORTED_BRAND", "", "L&T", "qube2"} {
		_, err := r.Resolve(brand)
		require.Error(t, err, brand)
		assert.True(t, errors.IsBadRequest(err))
		assert.Equal(t, http.StatusBadRequest, errors.HTTPStatus(err))
		assert.ErrorIs(t, err, errors.ErrUnsupportedBrand)
		assert.Equal(t, "Unsupported meter brand: "+brand, errors.PublicMessage(err))
	}
}

func TestResolve_KnownBrandWithoutAdapter(t *testing.T) {
	r, err := New(stubAdapter{reading.BrandQube})
	require.NoError(t, err)

	_, err = r.Resolve("SECURE")
	assert.True(t, errors.IsBadRequest(err))
	assert.Contains(t, errors.PublicMessage(err), "SECURE")
}

func TestNew_RejectsDuplicatesAndNil(t *testing.T) {
	_, err := New(stubAdapter{reading.BrandQube}, stubAdapter{reading.BrandQube})
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = New(stubAdapter{reading.BrandQube}, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestBrands(t *testing.T) {
	r := newRouter(t)
	brands := r.Brands()
	assert.Equal(t, []reading.Brand{reading.BrandQube, reading.BrandSecure, reading.BrandLNT}, brands)

	brands[0] = "MUTATED"
	assert.Equal(t, reading.BrandQube, r.Brands()[0])
}
