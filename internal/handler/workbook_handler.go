package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/export"
	"github.com/locvowork/sheetlens/internal/locale"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/search"
	"github.com/locvowork/sheetlens/internal/service/serviceutils"
	"github.com/locvowork/sheetlens/internal/session"
	"github.com/locvowork/sheetlens/internal/store"
)

const (
	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvMIME  = "text/csv; charset=utf-8"
)

type WorkbookHandler struct {
	sessions  *session.Manager
	views     domain.ViewStateRepository
	indexer   search.Indexer
	styles    export.Styles
	locale    *locale.Locale
	maxUpload int64
}

type HandlerOption func(*WorkbookHandler)

// WithExportStyles sets the styles of exported workbooks.
func WithExportStyles(s export.Styles) HandlerOption {
	return func(h *WorkbookHandler) { h.styles = s }
}

// WithLocale sets the locale of formatted cell text.
func WithLocale(l *locale.Locale) HandlerOption {
	return func(h *WorkbookHandler) { h.locale = l }
}

// WithMaxUpload caps uploaded files at n bytes.
func WithMaxUpload(n int64) HandlerOption {
	return func(h *WorkbookHandler) { h.maxUpload = n }
}

func NewWorkbookHandler(sessions *session.Manager, views domain.ViewStateRepository, indexer search.Indexer, opts ...HandlerOption) *WorkbookHandler {
	if indexer == nil {
		indexer = search.NopIndexer{}
	}
	h := &WorkbookHandler{
		sessions:  sessions,
		views:     views,
		indexer:   indexer,
		styles:    export.DefaultStyles,
		locale:    locale.Default(),
		maxUpload: 20 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the workbook API on g.
func (h *WorkbookHandler) RegisterRoutes(g *echo.Group) {
	wb := g.Group("/workbooks")
	wb.POST("", h.UploadHandler)
	wb.GET("", h.ListHandler)
	wb.GET("/:id", h.StateHandler)
	wb.DELETE("/:id", h.DeleteHandler)

	wb.PUT("/:id/sheet", h.SelectSheetHandler)
	wb.GET("/:id/sheet", h.CurrentSheetHandler)
	wb.GET("/:id/export", h.ExportSheetHandler)
	wb.PUT("/:id/cells", h.EditCellHandler)

	sec := wb.Group("/:id/sections/:section")
	sec.GET("", h.SectionHandler)
	sec.PUT("/search", h.SearchHandler)
	sec.DELETE("/search", h.ClearSearchHandler)
	sec.POST("/sort", h.ToggleSortHandler)
	sec.DELETE("/sort", h.ClearSortHandler)
	sec.PUT("/apply-filters", h.ApplyFiltersHandler)
	sec.POST("/charts", h.ToggleChartHandler)
	sec.PATCH("/charts/:column", h.UpdateChartHandler)
	sec.POST("/exclusions", h.ToggleExclusionHandler)
	sec.PUT("/card", h.SetCardHandler)
	sec.PATCH("/card", h.UpdateCardHandler)
	sec.DELETE("/card", h.ClearCardHandler)
	sec.PATCH("/style", h.StyleHandler)
	sec.GET("/export", h.ExportSectionHandler)

	wb.GET("/:id/views", h.ListViewStatesHandler)
	wb.POST("/:id/views", h.SaveViewStateHandler)
	wb.POST("/:id/views/restore", h.RestoreViewStateHandler)
	wb.DELETE("/:id/views", h.DeleteViewStateHandler)

	g.GET("/search", h.SearchRowsHandler)
}

// ==================== Workbooks ====================

func (h *WorkbookHandler) UploadHandler(c echo.Context) error {
	ctx := c.Request().Context()
	fh, err := c.FormFile("file")
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing file", err)
	}
	if fh.Size > h.maxUpload {
		return serviceutils.ResponseError(c, http.StatusRequestEntityTooLarge, "File too large",
			fmt.Errorf("%d bytes exceeds the %d byte limit", fh.Size, h.maxUpload))
	}

	src, err := fh.Open()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Unreadable file", err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, h.maxUpload+1))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Unreadable file", err)
	}
	if int64(len(data)) > h.maxUpload {
		return serviceutils.ResponseError(c, http.StatusRequestEntityTooLarge, "File too large",
			fmt.Errorf("upload exceeds the %d byte limit", h.maxUpload))
	}
	if err := checkWorkbookType(data); err != nil {
		return fail(c, "Unsupported file", err)
	}

	wb, err := reader.OpenReader(bytes.NewReader(data))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusUnprocessableEntity, "Invalid workbook", err)
	}
	defer wb.Close()

	sess, err := h.sessions.Create(ctx, wb, fh.Filename, int64(len(data)))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusUnprocessableEntity, "Invalid workbook", err)
	}
	h.indexWorkbook(c, sess)

	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Workbook loaded successfully", map[string]interface{}{
		"id":    sess.ID,
		"state": sess.Store.State(),
	})
}

// checkWorkbookType accepts xlsx files and zip containers detected as such.
func checkWorkbookType(data []byte) error {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is("application/zip") {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", mt.String(), domain.ErrUnsupportedFile)
}

func (h *WorkbookHandler) indexWorkbook(c echo.Context, sess *session.Session) {
	ctx := c.Request().Context()
	names := sess.Store.State().SheetNames
	sheets := make([]domain.Sheet, 0, len(names))
	for _, name := range names {
		if sheet, ok := sess.Store.Sheet(name); ok {
			sheets = append(sheets, sheet)
		}
	}
	if err := search.IndexWorkbook(ctx, h.indexer, sess.ID, sess.FileName, sheets); err != nil {
		logger.WarnLog(ctx, "workbook %s is only partly searchable: %v", sess.ID, err)
	}
}

func (h *WorkbookHandler) ListHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Workbooks listed successfully", h.sessions.List())
}

func (h *WorkbookHandler) StateHandler(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Workbook retrieved successfully", sess.Store.State())
}

func (h *WorkbookHandler) DeleteHandler(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if err := h.sessions.Delete(ctx, id); err != nil {
		return fail(c, "Failed to close workbook", err)
	}
	if err := h.indexer.DeleteWorkbook(ctx, id); err != nil {
		logger.ErrorLog(ctx, err, "unindex %s", id)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Workbook closed successfully", nil)
}

// ==================== Sheets ====================

func (h *WorkbookHandler) SelectSheetHandler(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	var req SelectSheetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, "Invalid request body", err)
	}
	if err := sess.Store.SelectSheet(c.Request().Context(), req.Name); err != nil {
		return fail(c, "Failed to select sheet", err)
	}
	return h.respondSheet(c, sess.Store, "Sheet selected successfully")
}

func (h *WorkbookHandler) CurrentSheetHandler(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	return h.respondSheet(c, sess.Store, "Sheet retrieved successfully")
}

func (h *WorkbookHandler) respondSheet(c echo.Context, st *store.Store, message string) error {
	sheet, ok := st.CurrentSheet()
	if !ok {
		return fail(c, "Failed to get sheet", domain.ErrSheetNotFound)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, message, PresentSheet(sheet, h.locale))
}

func (h *WorkbookHandler) EditCellHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	var req EditCellRequest
	if err := bindAndValidate(c, &req); err != nil {
		return fail(c, "Invalid request body", err)
	}
	changes, err := sess.Store.EditCell(ctx, *req.Row, *req.Col, req.Value)
	if err != nil {
		return fail(c, "Failed to edit cell", err)
	}
	if len(changes) > 0 {
		if sheet, ok := sess.Store.CurrentSheet(); ok {
			if err := h.indexer.IndexSheet(ctx, sess.ID, sess.FileName, sheet); err != nil {
				logger.ErrorLog(ctx, err, "reindex %s of %s", sheet.Name(), sess.ID)
			}
		}
	}
	sheet, _ := sess.Store.CurrentSheet()
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Cell edited successfully", EditCellResponse{
		Changes: ChangeViews(changes),
		Sheet:   PresentSheet(sheet, h.locale),
	})
}

// ==================== Sections ====================

// sectionTarget resolves the session and the section index of the path.
func (h *WorkbookHandler) sectionTarget(c echo.Context) (*store.Store, int, error) {
	sess, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, 0, err
	}
	index, err := strconv.Atoi(c.Param("section"))
	if err != nil {
		return nil, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid section index")
	}
	sheet, ok := sess.Store.CurrentSheet()
	if !ok {
		return nil, 0, domain.ErrSheetNotFound
	}
	if _, ok := sheet.Section(index); !ok {
		return nil, 0, fmt.Errorf("section %d of %s: %w", index, sheet.Name(), domain.ErrSheetNotFound)
	}
	return sess.Store, index, nil
}

func (h *WorkbookHandler) respondSection(c echo.Context, st *store.Store, index int, changed bool) error {
	sheet, _ := st.CurrentSheet()
	section, ok := sheet.Section(index)
	if !ok {
		return fail(c, "Failed to get section", domain.ErrSheetNotFound)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Section retrieved successfully", SectionResponse{
		Changed: changed,
		Section: presentSection(index, section, h.locale),
	})
}

// sectionCommand binds req, runs cmd against the section of the path and
// replies with the updated section.
func (h *WorkbookHandler) sectionCommand(c echo.Context, req interface{}, cmd func(st *store.Store, index int) bool) error {
	st, index, err := h.sectionTarget(c)
	if err != nil {
		return fail(c, "Failed to get section", err)
	}
	if req != nil {
		if err := bindAndValidate(c, req); err != nil {
			return fail(c, "Invalid request body", err)
		}
	}
	return h.respondSection(c, st, index, cmd(st, index))
}

func (h *WorkbookHandler) SectionHandler(c echo.Context) error {
	return h.sectionCommand(c, nil, func(*store.Store, int) bool { return false })
}

func (h *WorkbookHandler) SearchHandler(c echo.Context) error {
	var req SearchRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		return st.SetSearchText(i, req.Text)
	})
}

func (h *WorkbookHandler) ClearSearchHandler(c echo.Context) error {
	return h.sectionCommand(c, nil, func(st *store.Store, i int) bool { return st.ClearSearch(i) })
}

func (h *WorkbookHandler) ToggleSortHandler(c echo.Context) error {
	var req SortRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		return st.ToggleSort(i, *req.Column)
	})
}

func (h *WorkbookHandler) ClearSortHandler(c echo.Context) error {
	return h.sectionCommand(c, nil, func(st *store.Store, i int) bool { return st.ClearSort(i) })
}

func (h *WorkbookHandler) ApplyFiltersHandler(c echo.Context) error {
	var req ApplyFiltersRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		return st.SetApplyFiltersToCharts(i, *req.Apply)
	})
}

func (h *WorkbookHandler) ToggleChartHandler(c echo.Context) error {
	var req ToggleChartRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		changed := st.ToggleChart(i, *req.Column)
		if req.Type != "" && st.SetChartType(i, *req.Column, req.Type) {
			changed = true
		}
		return changed
	})
}

func (h *WorkbookHandler) UpdateChartHandler(c echo.Context) error {
	column, err := strconv.Atoi(c.Param("column"))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Invalid chart column", err)
	}
	var req UpdateChartRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		changed := false
		if req.Type != "" && st.SetChartType(i, column, req.Type) {
			changed = true
		}
		if req.LabelColumn != nil && st.SetChartLabelColumn(i, column, *req.LabelColumn) {
			changed = true
		}
		return changed
	})
}

// ToggleExclusionHandler flips one row out of, or back into, every visible
// chart of the section.
func (h *WorkbookHandler) ToggleExclusionHandler(c echo.Context) error {
	var req RowExclusionRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		return st.ToggleRowExclusion(i, *req.Row)
	})
}

func (h *WorkbookHandler) SetCardHandler(c echo.Context) error {
	var req SetCardRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		return st.SetCardRecap(i, *req.Row, *req.Col, req.Style)
	})
}

func (h *WorkbookHandler) UpdateCardHandler(c echo.Context) error {
	var req UpdateCardRequest
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		changed := st.UpdateCard(i, func(card domain.CardRecap) domain.CardRecap {
			if req.Label != nil {
				card = card.WithLabel(*req.Label)
			}
			if req.Unit != nil {
				card = card.WithUnit(*req.Unit)
			}
			if req.Color != nil {
				card = card.WithColor(*req.Color)
			}
			if req.Icon != nil {
				card = card.WithIcon(*req.Icon)
			}
			return card
		})
		if req.Style != nil {
			if req.Replace {
				changed = st.SetCardStyle(i, *req.Style) || changed
			} else {
				changed = st.UpdateCardStyle(i, *req.Style) || changed
			}
		}
		return changed
	})
}

func (h *WorkbookHandler) ClearCardHandler(c echo.Context) error {
	return h.sectionCommand(c, nil, func(st *store.Store, i int) bool { return st.ClearCardRecap(i) })
}

func (h *WorkbookHandler) StyleHandler(c echo.Context) error {
	var req domain.SectionStylePatch
	return h.sectionCommand(c, &req, func(st *store.Store, i int) bool {
		return st.UpdateSectionStyle(i, req)
	})
}

// ==================== Export ====================

func (h *WorkbookHandler) exporter(q ExportQuery) *export.Exporter {
	opts := []export.Option{export.WithStyles(h.styles), export.WithAutoFilter()}
	if q.Charts {
		opts = append(opts, export.WithChartSheets(q.Native))
	}
	return export.New(opts...)
}

func (h *WorkbookHandler) ExportSectionHandler(c echo.Context) error {
	st, index, err := h.sectionTarget(c)
	if err != nil {
		return fail(c, "Failed to get section", err)
	}
	var q ExportQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, "Invalid export options", err)
	}
	sheet, _ := st.CurrentSheet()
	section, _ := sheet.Section(index)
	name := exportName(st.State().FileName, fmt.Sprintf("%s-%d", sheet.Name(), index+1))
	ex := h.exporter(q)

	if q.Format == "csv" {
		var buf bytes.Buffer
		if err := ex.ToCSV(&buf, section); err != nil {
			return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export section", err)
		}
		return attachment(c, name+".csv", csvMIME, buf.Bytes())
	}
	f, err := ex.BuildSection(sheet.Name(), section)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export section", err)
	}
	data, err := export.ToBytes(f)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export section", err)
	}
	return attachment(c, name+".xlsx", xlsxMIME, data)
}

func (h *WorkbookHandler) ExportSheetHandler(c echo.Context) error {
	sess, err := h.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	var q ExportQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, "Invalid export options", err)
	}
	sheet, ok := sess.Store.CurrentSheet()
	if !ok {
		return fail(c, "Failed to get sheet", domain.ErrSheetNotFound)
	}
	name := exportName(sess.FileName, sheet.Name())
	ex := h.exporter(q)

	if q.Format == "csv" {
		var buf bytes.Buffer
		if err := ex.ToCSV(&buf, sheet.Sections()...); err != nil {
			return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export sheet", err)
		}
		return attachment(c, name+".csv", csvMIME, buf.Bytes())
	}
	f, err := ex.BuildSheet(sheet)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export sheet", err)
	}
	data, err := export.ToBytes(f)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to export sheet", err)
	}
	return attachment(c, name+".xlsx", xlsxMIME, data)
}

func exportName(fileName, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" || base == "." {
		base = "workbook"
	}
	return base + "-" + suffix
}

func attachment(c echo.Context, fileName, contentType string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fileName))
	return c.Blob(http.StatusOK, contentType, data)
}

// ==================== View states ====================

func (h *WorkbookHandler) SaveViewStateHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	vs, ok := sess.Store.CaptureViewState()
	if !ok {
		return fail(c, "Failed to capture view", domain.ErrSheetNotFound)
	}
	if err := h.views.Save(ctx, &vs); err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to save view", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "View saved successfully", vs)
}

// RestoreViewStateHandler replays the saved view of the current sheet.
func (h *WorkbookHandler) RestoreViewStateHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	state := sess.Store.State()
	vs, err := h.views.Get(ctx, state.FileName, state.CurrentSheet)
	if err != nil {
		return fail(c, "Failed to restore view", err)
	}
	if !sess.Store.ApplyViewState(*vs) {
		return fail(c, "Failed to restore view", domain.ErrSheetNotFound)
	}
	return h.respondSheet(c, sess.Store, "View restored successfully")
}

func (h *WorkbookHandler) ListViewStatesHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	states, err := h.views.List(ctx, sess.FileName)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to list views", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Views listed successfully", states)
}

func (h *WorkbookHandler) DeleteViewStateHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sess, err := h.sessions.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, "Failed to get workbook", err)
	}
	state := sess.Store.State()
	if err := h.views.Delete(ctx, state.FileName, state.CurrentSheet); err != nil {
		return fail(c, "Failed to delete view", err)
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "View deleted successfully", nil)
}

// ==================== Search ====================

func (h *WorkbookHandler) SearchRowsHandler(c echo.Context) error {
	var q SearchQuery
	if err := bindQuery(c, &q); err != nil {
		return fail(c, "Invalid search query", err)
	}
	docs, err := h.indexer.Search(c.Request().Context(), q.Workbook, q.Query)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadGateway, "Search failed", err)
	}
	if docs == nil {
		docs = []search.RowDoc{}
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Search completed successfully", docs)
}
