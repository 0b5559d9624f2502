package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/asset-custody/internal/acta"
	"github.com/crucial707/asset-custody/internal/ledger"
	"github.com/crucial707/asset-custody/internal/models"
	"github.com/crucial707/asset-custody/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	actaCols = []string{"id", "folio", "collaborator_id", "name", "rut", "acta_date", "document_path",
		"description", "cost_center", "created_by", "created_at"}
	heldCols = []string{"id", "category", "name", "brand", "model", "serial", "state", "assigned_on"}
)

func newActaHandler(t *testing.T) (*ActaHandler, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := filepath.Join(t.TempDir(), "actas")
	return &ActaHandler{
		Repo:          repo.NewActaRepo(db),
		Collaborators: repo.NewCollaboratorRepo(db),
		Assets:        repo.NewAssetRepo(db),
		Ledger:        ledger.New(db),
		Renderer:      &acta.Renderer{Dir: dir},
		Now:           func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) },
	}, mock, dir
}

func expectActaCollaborator(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`FROM "collaborators" AS "c"`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(collaboratorCols).
			AddRow(5, "Ana Pérez", "12.345.678-5", "F", nil, nil, nil, true, "Analista", "Parque Norte", "", "", "", time.Now()))
}

func postActa(h *ActaHandler, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	rr := httptest.NewRecorder()
	h.CreateActa(rr, httptest.NewRequest("POST", "/actas", bytes.NewReader(b)))
	return rr
}

func TestActaHandler_Create_FromHeldAssets(t *testing.T) {
	h, mock, dir := newActaHandler(t)

	expectActaCollaborator(mock)
	mock.ExpectQuery(`FROM asset_assignments aa JOIN assets a ON a.id = aa.asset_id`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(heldCols).
			AddRow(30, "notebook", "NB-30", "Lenovo", "T14", "SN30", "ASSIGNED", time.Now()))
	mock.ExpectQuery(`INSERT INTO actas`).
		WithArgs(sqlmock.AnyArg(), 5, sqlmock.AnyArg(), filepath.Join(dir, "12345678_14032025.html"),
			sqlmock.AnyArg(), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

	rr := postActa(h, map[string]any{"collaborator_id": 5})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var got models.Acta
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, 1, got.ID)
	assert.NotEmpty(t, got.Folio)

	content, err := os.ReadFile(got.DocumentPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "SN30")
	assert.Contains(t, string(content), "Ana Pérez")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActaHandler_Create_NothingHeld(t *testing.T) {
	h, mock, dir := newActaHandler(t)

	expectActaCollaborator(mock)
	mock.ExpectQuery(`FROM asset_assignments aa JOIN assets a`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(heldCols))

	rr := postActa(h, map[string]any{"collaborator_id": 5})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "no acta file may be written")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActaHandler_Create_RemovesFileWhenInsertFails(t *testing.T) {
	h, mock, dir := newActaHandler(t)

	expectActaCollaborator(mock)
	mock.ExpectQuery(`FROM asset_assignments aa JOIN assets a`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(heldCols).
			AddRow(30, "notebook", "NB-30", "Lenovo", "T14", "SN30", "ASSIGNED", time.Now()))
	mock.ExpectQuery(`INSERT INTO actas`).WillReturnError(errors.New("connection reset"))

	rr := postActa(h, map[string]any{"collaborator_id": 5})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActaHandler_Create_UnknownCollaborator(t *testing.T) {
	h, mock, _ := newActaHandler(t)

	mock.ExpectQuery(`FROM "collaborators" AS "c"`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(collaboratorCols))

	rr := postActa(h, map[string]any{"collaborator_id": 5})

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActaHandler_Download(t *testing.T) {
	h, mock, dir := newActaHandler(t)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	path := filepath.Join(dir, "12345678_14032025.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>acta</html>"), 0o640))

	mock.ExpectQuery(`FROM actas a JOIN collaborators c ON c.id = a.collaborator_id WHERE a.id = \$1`).WithArgs(7).
		WillReturnRows(sqlmock.NewRows(actaCols).
			AddRow(7, "f-1", 5, "Ana Pérez", "12.345.678-5", time.Now(), path, "Entrega", "", nil, time.Now()))

	rr := httptest.NewRecorder()
	h.DownloadActa(rr, requestWithChiURLParams("GET", "/actas/7/download", nil, map[string]string{"id": "7"}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="12345678_14032025.html"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "<html>acta</html>", rr.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActaHandler_Download_NotFound(t *testing.T) {
	h, mock, _ := newActaHandler(t)

	mock.ExpectQuery(`FROM actas a JOIN collaborators c`).WithArgs(8).
		WillReturnRows(sqlmock.NewRows(actaCols))

	rr := httptest.NewRecorder()
	h.DownloadActa(rr, requestWithChiURLParams("GET", "/actas/8/download", nil, map[string]string{"id": "8"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
