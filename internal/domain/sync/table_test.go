package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableFor(t *testing.T) {
	t.Run("backoffice-area table", func(t *testing.T) {
		spec, err := TableFor("orders")
		require.NoError(t, err)
		assert.Equal(t, AreaBackOffice, spec.Area)
		assert.Equal(t, SubjectSyncOrders, spec.Subject)
		assert.Equal(t, "fe_order_id", spec.SourceKey)
	})

	t.Run("frontend-area table", func(t *testing.T) {
		spec, err := TableFor("invoices")
		require.NoError(t, err)
		assert.Equal(t, AreaFrontEnd, spec.Area)
		assert.Equal(t, SubjectSyncInvoices, spec.Subject)
	})

	t.Run("ext-data tables share a subject", func(t *testing.T) {
		for _, table := range []string{"products-inventory", "products-imagegallery", "products-variants"} {
			spec, err := TableFor(table)
			require.NoError(t, err)
			assert.Equal(t, SubjectSyncProductsExtData, spec.Subject)
			assert.Equal(t, "sku", spec.SourceKey)
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := TableFor("warehouses")
		assert.ErrorIs(t, err, ErrUnknownTable)
		assert.Contains(t, err.Error(), "warehouses")
	})
}

func TestTablesIsClosed(t *testing.T) {
	specs := Tables()
	assert.Len(t, specs, 15)

	for _, spec := range specs {
		assert.NotEmpty(t, spec.SourceKey, spec.Table)
		assert.NotEmpty(t, spec.TargetKey, spec.Table)
		assert.NotEmpty(t, spec.Subject, spec.Table)
	}
}
