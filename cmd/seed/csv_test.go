package main

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/portfolio-status-api/internal/domain/entity"
)

func TestReadBatch_Completo(t *testing.T) {
	fsys := fstest.MapFS{
		"countries.csv":     {Data: []byte("\ufeffid,name,code,hasTiers,numberOfTiers,isActive\nco,Colombia,CO,si,3,\nmx, Mexico ,mx,no,2,false\n")},
		"procedures.csv":    {Data: []byte("id,name,category\nacdf,ACDF,CERVICAL\n\n")},
		"product_types.csv": {Data: []byte("id,name\nplate,Plate\n")},
		"products.csv": {Data: []byte("id,name,procedureId,productTypeId,productTier,productLifeCycle\n" +
			"p1,Cervical Plate,acdf,plate,Tier 1,Flagship\n")},
		"status_portfolios.csv": {Data: []byte("productId,countryId,statusId,setsQty\np1,co,s1,\"1,5\"\n")},
	}
	b, err := readBatch(fsys, "utf-8")
	require.NoError(t, err)

	require.Len(t, b.catalogue.Countries, 2)
	assert.Equal(t, entity.Country{ID: "co", Name: "Colombia", Code: "CO", HasTiers: true, NumberOfTiers: 3, IsActive: true}, b.catalogue.Countries[0])
	assert.Equal(t, "Mexico", b.catalogue.Countries[1].Name)
	assert.False(t, b.catalogue.Countries[1].IsActive)

	require.Len(t, b.catalogue.Procedures, 1, "las filas vacías se ignoran")
	require.Len(t, b.catalogue.Products, 1)
	assert.Equal(t, entity.TierOne, b.catalogue.Products[0].ProductTier)
	assert.Empty(t, b.catalogue.Statuses, "archivo ausente")

	require.Len(t, b.assignments, 1)
	assert.Equal(t, "1,5", b.assignments[0].SetsQty)
}

func TestReadBatch_Windows1252(t *testing.T) {
	raw, err := charmap.Windows1252.NewEncoder().String("id,name,code\npe,Perú,PE\n")
	require.NoError(t, err)

	b, err := readBatch(fstest.MapFS{"countries.csv": {Data: []byte(raw)}}, "windows-1252")
	require.NoError(t, err)
	require.Len(t, b.catalogue.Countries, 1)
	assert.Equal(t, "Perú", b.catalogue.Countries[0].Name)
}

func TestReadBatch_Errores(t *testing.T) {
	_, err := readBatch(fstest.MapFS{"countries.csv": {Data: []byte("id,name,isActive\nco,Colombia,quizas\n")}}, "utf-8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "countries.csv:2")

	_, err = readBatch(fstest.MapFS{"countries.csv": {Data: []byte("id\n")}}, "ebcdic")
	assert.Error(t, err)
}
