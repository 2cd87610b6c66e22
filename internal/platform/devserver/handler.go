package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/blobstore"
	"github.com/ehr/maternity/pkg/pagination"
)

const (
	defaultRecentLimit = 5
	maxRecentLimit     = 50
)

// Handler serves one Collection.
type Handler struct {
	col    Collection
	repo   Repository
	blobs  blobstore.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewHandler(col Collection, repo Repository, blobs blobstore.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		col:    col,
		repo:   repo,
		blobs:  blobs,
		logger: logger.With().Str("collection", col.Name).Logger(),
		now:    time.Now,
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group(h.col.Endpoint)
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/search", h.Search)
	g.GET("/recent", h.Recent)
	if h.col.ParentSegment != "" {
		g.GET("/"+h.col.ParentSegment+"/:parentId", h.ListByParent)
	}
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// -- Read handlers --

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	docs, err := h.repo.List(c.Request().Context(), h.col.Name)
	if err != nil {
		return err
	}
	if pg.SortBy != "" {
		sortDocuments(docs, pg.SortBy, pg.SortDir == pagination.SortDesc)
	}
	return c.JSON(http.StatusOK, page(docs, pg))
}

func (h *Handler) Get(c echo.Context) error {
	doc, err := h.repo.Get(c.Request().Context(), h.col.Name, c.Param("id"))
	if err != nil {
		return h.notFound(err)
	}
	return c.JSON(http.StatusOK, doc)
}

// ListByParent answers 404 when the parent itself does not exist, and an
// empty list when it has no children.
func (h *Handler) ListByParent(c echo.Context) error {
	ctx := c.Request().Context()
	parentID := c.Param("parentId")
	if err := h.checkParent(ctx, parentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, h.col.ParentLabel+" not found")
		}
		return err
	}

	docs, err := h.repo.ListByParent(ctx, h.col.Name, parentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, len(docs), pagination.Params{Size: len(docs)}))
}

func (h *Handler) Search(c echo.Context) error {
	pg := pagination.FromContext(c)
	term := strings.ToLower(strings.TrimSpace(c.QueryParam("term")))
	parentID := c.QueryParam("parentId")

	var (
		docs []Document
		err  error
	)
	if parentID != "" && h.col.ParentField != "" {
		docs, err = h.repo.ListByParent(c.Request().Context(), h.col.Name, parentID)
	} else {
		docs, err = h.repo.List(c.Request().Context(), h.col.Name)
	}
	if err != nil {
		return err
	}

	matched := []Document{}
	for _, d := range docs {
		if h.matches(d, term) {
			matched = append(matched, d)
		}
	}
	return c.JSON(http.StatusOK, page(matched, pg))
}

// Recent returns the most recently created documents, newest first.
func (h *Handler) Recent(c echo.Context) error {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	docs, err := h.repo.List(c.Request().Context(), h.col.Name)
	if err != nil {
		return err
	}
	out := make([]Document, 0, limit)
	for i := len(docs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, docs[i])
	}
	return c.JSON(http.StatusOK, out)
}

// -- Write handlers --

func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	doc, files, err := h.readBody(c)
	if err != nil {
		return err
	}
	if err := h.validate(ctx, doc); err != nil {
		return err
	}

	doc["id"] = uuid.New().String()
	doc["createdAt"] = h.now().UTC().Format(time.RFC3339Nano)
	if err := h.attach(ctx, doc, files); err != nil {
		return err
	}

	if err := h.repo.Put(ctx, h.col.Name, doc.String(h.col.ParentField), doc); err != nil {
		return err
	}
	h.logger.Debug().Str("id", doc.ID()).Msg("created")
	return c.JSON(http.StatusCreated, doc)
}

// Update replaces the stored document. The id, creation time and parent are
// kept when the body omits them, and so are images unless the body lists
// them; uploaded files are appended.
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	existing, err := h.repo.Get(ctx, h.col.Name, id)
	if err != nil {
		return h.notFound(err)
	}

	doc, files, err := h.readBody(c)
	if err != nil {
		return err
	}
	for _, keep := range []string{h.col.ParentField, h.col.FileField} {
		if _, ok := doc[keep]; !ok && keep != "" && existing[keep] != nil {
			doc[keep] = existing[keep]
		}
	}
	if err := h.validate(ctx, doc); err != nil {
		return err
	}

	doc["id"] = id
	doc["createdAt"] = existing["createdAt"]
	doc["updatedAt"] = h.now().UTC().Format(time.RFC3339Nano)
	if err := h.attach(ctx, doc, files); err != nil {
		return err
	}

	if err := h.repo.Put(ctx, h.col.Name, doc.String(h.col.ParentField), doc); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	existing, err := h.repo.Get(ctx, h.col.Name, id)
	if err != nil {
		return h.notFound(err)
	}
	if err := h.repo.Delete(ctx, h.col.Name, id); err != nil {
		return h.notFound(err)
	}

	for _, blobID := range imageIDs(existing[h.col.FileField]) {
		if err := h.blobs.Delete(ctx, blobID); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
			h.logger.Warn().Err(err).Str("blob", blobID).Msg("failed to delete image")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Helpers --

// readBody decodes a JSON body, or a multipart body whose "data" field holds
// the JSON and whose FileField parts are files.
func (h *Handler) readBody(c echo.Context) (Document, []*multipart.FileHeader, error) {
	req := c.Request()
	var doc Document

	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart body")
		}
		data := form.Value["data"]
		if len(data) == 0 {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "multipart body has no data part")
		}
		if err := json.Unmarshal([]byte(data[0]), &doc); err != nil {
			return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid JSON in data part")
		}
		var files []*multipart.FileHeader
		if h.col.FileField != "" {
			files = form.File[h.col.FileField]
		}
		return nonNilDoc(doc), files, nil
	}

	if err := json.NewDecoder(req.Body).Decode(&doc); err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body")
	}
	return nonNilDoc(doc), nil, nil
}

func (h *Handler) validate(ctx context.Context, doc Document) error {
	for _, field := range h.col.Required {
		if doc.String(field) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, field+" is required")
		}
	}
	if h.col.ParentField == "" {
		return nil
	}
	if err := h.checkParent(ctx, doc.String(h.col.ParentField)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, h.col.ParentLabel+" does not exist")
		}
		return err
	}
	return nil
}

func (h *Handler) checkParent(ctx context.Context, parentID string) error {
	if h.col.ParentCollection == "" {
		return nil
	}
	_, err := h.repo.Get(ctx, h.col.ParentCollection, parentID)
	return err
}

// attach stores uploaded files and appends them to the document images.
func (h *Handler) attach(ctx context.Context, doc Document, files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return nil
	}

	images, _ := doc[h.col.FileField].([]interface{})
	for _, fh := range files {
		meta, err := h.storeFile(ctx, fh)
		if err != nil {
			return blobstore.HTTPError(err)
		}
		images = append(images, map[string]interface{}{
			"id":    meta.ID,
			"path":  blobstore.URL(meta.ID),
			"title": meta.FileName,
		})
	}
	doc[h.col.FileField] = images
	return nil
}

func (h *Handler) storeFile(ctx context.Context, fh *multipart.FileHeader) (*blobstore.Metadata, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	return h.blobs.Put(ctx, blobstore.Metadata{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}, src)
}

func (h *Handler) matches(d Document, term string) bool {
	if term == "" {
		return true
	}
	for _, f := range h.col.SearchFields {
		if strings.Contains(strings.ToLower(d.String(f)), term) {
			return true
		}
	}
	return false
}

func (h *Handler) notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	return err
}

func page(docs []Document, pg pagination.Params) *pagination.Response {
	start, end := pg.Bounds(len(docs))
	return pagination.NewResponse(docs[start:end], len(docs), pg)
}

// sortDocuments orders by field, numerically when both values are numbers.
// Documents missing the field sort last.
func sortDocuments(docs []Document, field string, desc bool) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i][field]
		b, bok := docs[j][field]
		if !aok || !bok {
			return aok && !bok
		}
		if af, ok := a.(float64); ok {
			if bf, ok := b.(float64); ok {
				if desc {
					return bf < af
				}
				return af < bf
			}
		}
		as, bs := docs[i].String(field), docs[j].String(field)
		if desc {
			return bs < as
		}
		return as < bs
	})
}

func imageIDs(v interface{}) []string {
	list, _ := v.([]interface{})
	var out []string
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			if id, ok := m["id"].(string); ok && id != "" {
				out = append(out, id)
			}
		}
	}
	return out
}

func nonNilDoc(d Document) Document {
	if d == nil {
		return Document{}
	}
	return d
}
