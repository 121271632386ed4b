package textextract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminal-bench/civicsim/internal/apperr"
)

func TestExtract(t *testing.T) {
	t.Run("should return plain text as is", func(t *testing.T) {
		text, err := Extract([]byte("Department of Education circular"), "text/plain; charset=utf-8")
		require.NoError(t, err)
		assert.Equal(t, "Department of Education circular", text)
	})

	t.Run("should drop invalid utf-8", func(t *testing.T) {
		text, err := Extract([]byte("ok\xffok"), "text/plain")
		require.NoError(t, err)
		assert.Equal(t, "okok", text)
	})

	t.Run("should use the placeholder for images", func(t *testing.T) {
		for _, ct := range []string{"image/png", "image/jpeg"} {
			text, err := Extract([]byte{0x89, 'P', 'N', 'G'}, ct)
			require.NoError(t, err)
			assert.Equal(t, ImagePlaceholder, text)
		}
	})

	t.Run("should fail on a broken pdf", func(t *testing.T) {
		_, err := Extract([]byte("%PDF-1.4 not really"), "application/pdf")
		assert.Error(t, err)
	})

	t.Run("should reject other types", func(t *testing.T) {
		_, err := Extract([]byte("PK"), "application/zip")
		assert.ErrorIs(t, err, apperr.ErrUnsupportedType)
	})
}

func TestReadLimited(t *testing.T) {
	t.Run("should read within the limit", func(t *testing.T) {
		data, err := ReadLimited(strings.NewReader("12345"), 5)
		require.NoError(t, err)
		assert.Equal(t, "12345", string(data))
	})

	t.Run("should reject oversized input", func(t *testing.T) {
		_, err := ReadLimited(strings.NewReader("123456"), 5)
		assert.ErrorIs(t, err, apperr.ErrFileTooLarge)
	})
}
