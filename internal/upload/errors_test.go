package upload

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsAndKind(t *testing.T) {
	err := fmt.Errorf("handle: %w", &Error{Kind: KindPersist, Err: fs.ErrPermission})

	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, ErrProcessing)
	assert.Equal(t, KindPersist, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestUploadTransportMessageCarriesCode(t *testing.T) {
	err := &Error{Kind: KindUploadTransport, Code: CodePartial}

	assert.Equal(t, "Upload error: 3 (partial upload)", err.Message())
	assert.Contains(t, err.Error(), "code 3")
	assert.ErrorIs(t, err, ErrUploadTransport)
	assert.ErrorIs(t, err, &Error{Kind: KindUploadTransport, Code: CodePartial})
	assert.NotErrorIs(t, err, &Error{Kind: KindUploadTransport, Code: CodeIniSize})
}

func TestKindStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindInputAbsent.Status())
	assert.Equal(t, http.StatusBadRequest, KindUploadTransport.Status())
	assert.Equal(t, http.StatusInternalServerError, KindDirectoryMissing.Status())
	assert.Equal(t, http.StatusInternalServerError, KindPersist.Status())
	assert.Equal(t, http.StatusInternalServerError, KindProcessing.Status())
}
