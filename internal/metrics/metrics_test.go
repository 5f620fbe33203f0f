package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	assert.Equal(t, 7.0, queryCount(db, nil, "SELECT COUNT(*) FROM clientmap.clients"))

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("boom"))
	assert.Equal(t, 0.0, queryCount(db, nil, "SELECT COUNT(*) FROM clientmap.clients"))

	assert.Equal(t, 0.0, queryCount(nil, nil, "SELECT 1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerExposesCounters(t *testing.T) {
	Init(nil, nil)
	IncSlotAssignment(ResultFull)
	IncLabelAnchor("centroid")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `clientmap_slot_assignments_total{result="full"}`))
	assert.True(t, strings.Contains(body, `clientmap_label_anchors_total{strategy="centroid"}`))
}
