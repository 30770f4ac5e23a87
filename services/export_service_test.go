package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"leasekeeper/models"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportService(t *testing.T) {
	w := newWiring(t, "2024-01-20")
	ctx := context.Background()

	c, err := w.contracts.Create(ctx, w.dto(models.ContractStatusActive))
	require.NoError(t, err)
	export := NewExportService(w.contracts, w.obligations)

	t.Run("xml", func(t *testing.T) {
		file, err := export.ExportContractObligations(ctx, c.ID, ExportFormatXML)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(file.Name, ".xml"))
		assert.Equal(t, "application/xml", file.ContentType)

		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromBytes(file.Data))
		items := doc.FindElements("/Schedule/Obligations/Obligation")
		require.Len(t, items, 2)
		assert.Equal(t, "2024-02", items[0].SelectElement("period").Text())
		assert.Equal(t, "2024-02-01", items[0].SelectElement("due_date").Text())
		assert.Equal(t, "1000.00", items[0].SelectElement("amount_due").Text())
		assert.Equal(t, "PLANNED", items[1].SelectElement("status").Text())
		assert.Equal(t, "ACTIVE", doc.FindElement("/Schedule/Contract").SelectAttrValue("status", ""))
	})

	t.Run("xlsx", func(t *testing.T) {
		file, err := export.ExportContractObligations(ctx, c.ID, ExportFormatXLSX)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))

		book, err := excelize.OpenReader(bytes.NewReader(file.Data))
		require.NoError(t, err)
		defer book.Close()

		rows, err := book.GetRows("Obligations")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Период", rows[0][1])
		assert.Equal(t, "2024-03", rows[2][1])
		assert.Equal(t, "2024-03-01", rows[2][2])

		props, err := book.GetDocProps()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("Договор %d", c.ID), props.Title)
	})

	t.Run("xlsx without obligations", func(t *testing.T) {
		data, err := ObligationsXLSX(c, nil)
		require.NoError(t, err)

		book, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer book.Close()

		rows, err := book.GetRows("Obligations")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Len(t, rows[0], len(obligationColumns))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := export.ExportContractObligations(ctx, c.ID, "csv")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := export.ExportContractObligations(ctx, 404, ExportFormatXML)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
