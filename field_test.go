package treegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fileRow struct {
	Name    string
	Size    int64
	Owner   *string
	private int
}

func TestFieldValue(t *testing.T) {
	owner := "root"
	row := fileRow{Name: "a.txt", Size: 42, Owner: &owner, private: 1}

	t.Run("ExactName", func(t *testing.T) {
		assert.Equal(t, "a.txt", FieldValue(row, "Name"))
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		assert.Equal(t, int64(42), FieldValue(row, "size"))
	})

	t.Run("PointerItem", func(t *testing.T) {
		assert.Equal(t, "a.txt", FieldValue(&row, "name"))
	})

	t.Run("PointerField", func(t *testing.T) {
		assert.Equal(t, &owner, FieldValue(row, "Owner"))
	})

	t.Run("NilPointerFieldIsNil", func(t *testing.T) {
		assert.Nil(t, FieldValue(fileRow{}, "Owner"))
	})

	t.Run("Unexported", func(t *testing.T) {
		assert.Nil(t, FieldValue(row, "private"))
	})

	t.Run("Missing", func(t *testing.T) {
		assert.Nil(t, FieldValue(row, "mode"))
	})

	t.Run("Map", func(t *testing.T) {
		m := map[string]any{"name": "b", "size": nil}
		assert.Equal(t, "b", FieldValue(m, "name"))
		assert.Nil(t, FieldValue(m, "size"))
		assert.Nil(t, FieldValue(m, "absent"))
	})

	t.Run("NonStringMap", func(t *testing.T) {
		assert.Nil(t, FieldValue(map[int]string{1: "x"}, "1"))
	})

	t.Run("NilItem", func(t *testing.T) {
		var p *fileRow
		assert.Nil(t, FieldValue(p, "Name"))
	})
}
