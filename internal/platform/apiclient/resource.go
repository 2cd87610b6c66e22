package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/ehr/maternity/internal/platform/store"
)

// DefaultParentSegment is the path segment of parent-scoped listings.
const DefaultParentSegment = "consultation"

// Attachment is a file sent with a multipart create or update.
type Attachment struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Multipart is implemented by requests that carry files. The request itself
// is sent as a JSON part named "data" next to the files.
type Multipart interface {
	Attachments() []Attachment
}

// Resource is the remote collection at one endpoint. It implements
// store.Resource.
type Resource[T store.Entity] struct {
	client        *Client
	endpoint      string
	parentSegment string
}

// NewResource binds endpoint (e.g. "/consultations") to c. parentSegment
// names the parent in scoped listings; empty selects DefaultParentSegment.
func NewResource[T store.Entity](c *Client, endpoint, parentSegment string) *Resource[T] {
	if parentSegment == "" {
		parentSegment = DefaultParentSegment
	}
	return &Resource[T]{client: c, endpoint: endpoint, parentSegment: parentSegment}
}

// Endpoint returns the collection path.
func (r *Resource[T]) Endpoint() string { return r.endpoint }

// List sends GET {endpoint}?page&size&sortBy&sortDir.
func (r *Resource[T]) List(ctx context.Context, req store.PageRequest) (store.Page[T], error) {
	body, err := r.client.Do(ctx, http.MethodGet, r.endpoint, func(rq *resty.Request) {
		rq.SetQueryParams(pageParams(req.Page, req.Size))
		if req.SortBy != "" {
			rq.SetQueryParam("sortBy", req.SortBy)
		}
		if req.SortDir != "" {
			rq.SetQueryParam("sortDir", req.SortDir)
		}
	})
	if err != nil {
		return store.Page[T]{}, err
	}
	list, err := DecodeList[T](body)
	if err != nil {
		return store.Page[T]{}, err
	}
	info := list.Info
	if list.Shape == ShapeBare {
		info.Page, info.Size = req.Page, req.Size
	}
	info.SortBy, info.SortDir = req.SortBy, req.SortDir
	return store.Page[T]{Items: list.Items, Info: info}, nil
}

// Get sends GET {endpoint}/{id}.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return r.one(ctx, http.MethodGet, r.item(id), nil)
}

// ListByParent sends GET {endpoint}/{parentSegment}/{parentID}.
func (r *Resource[T]) ListByParent(ctx context.Context, parentID string) ([]T, error) {
	path := fmt.Sprintf("%s/%s/%s", r.endpoint, r.parentSegment, url.PathEscape(parentID))
	body, err := r.client.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	list, err := DecodeList[T](body)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Search sends GET {endpoint}/search?term&parentId&page&size.
func (r *Resource[T]) Search(ctx context.Context, req store.SearchRequest) (store.Page[T], error) {
	body, err := r.client.Do(ctx, http.MethodGet, r.endpoint+"/search", func(rq *resty.Request) {
		rq.SetQueryParams(pageParams(req.Page, req.Size))
		rq.SetQueryParam("term", req.Term)
		if req.ParentID != "" {
			rq.SetQueryParam("parentId", req.ParentID)
		}
	})
	if err != nil {
		return store.Page[T]{}, err
	}
	list, err := DecodeList[T](body)
	if err != nil {
		return store.Page[T]{}, err
	}
	return store.Page[T]{Items: list.Items, Info: list.Info}, nil
}

// Recent sends GET {endpoint}/recent?limit.
func (r *Resource[T]) Recent(ctx context.Context, limit int) ([]T, error) {
	body, err := r.client.Do(ctx, http.MethodGet, r.endpoint+"/recent", func(rq *resty.Request) {
		rq.SetQueryParam("limit", strconv.Itoa(limit))
	})
	if err != nil {
		return nil, err
	}
	list, err := DecodeList[T](body)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Create sends POST {endpoint}, as multipart when req carries attachments.
func (r *Resource[T]) Create(ctx context.Context, req store.Request) (T, error) {
	return r.write(ctx, http.MethodPost, r.endpoint, req)
}

// Update sends PUT {endpoint}/{id}.
func (r *Resource[T]) Update(ctx context.Context, id string, req store.Request) (T, error) {
	return r.write(ctx, http.MethodPut, r.item(id), req)
}

// Delete sends DELETE {endpoint}/{id}. The response body is ignored.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, http.MethodDelete, r.item(id), nil)
	return err
}

func (r *Resource[T]) write(ctx context.Context, method, path string, req store.Request) (T, error) {
	var zero T
	mp, ok := req.(Multipart)
	if !ok || len(mp.Attachments()) == 0 {
		return r.one(ctx, method, path, func(rq *resty.Request) {
			rq.SetHeader("Content-Type", "application/json").SetBody(req)
		})
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("encode %s payload: %w", r.endpoint, err)
	}
	files := mp.Attachments()
	return r.one(ctx, method, path, func(rq *resty.Request) {
		rq.SetMultipartField("data", "", "application/json", bytes.NewReader(payload))
		for _, f := range files {
			ct := f.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			rq.SetMultipartField(f.Field, f.FileName, ct, bytes.NewReader(f.Data))
		}
	})
}

func (r *Resource[T]) one(ctx context.Context, method, path string, prepare func(*resty.Request)) (T, error) {
	var zero T
	body, err := r.client.Do(ctx, method, path, prepare)
	if err != nil {
		return zero, err
	}
	out, _, err := DecodeOne[T](body)
	if err != nil {
		return zero, err
	}
	return out, nil
}

func (r *Resource[T]) item(id string) string {
	return r.endpoint + "/" + url.PathEscape(id)
}

func pageParams(page, size int) map[string]string {
	params := map[string]string{"page": strconv.Itoa(page)}
	if size > 0 {
		params["size"] = strconv.Itoa(size)
	}
	return params
}
