package dexapi

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/steinarvk/whizdex/lib/recquery"
)

type QueryRequest struct {
	Collection string            `json:"collection"`
	Search     string            `json:"search"`
	Filters    map[string]string `json:"filters"`
	OrderBy    *OrderBy          `json:"order_by"`

	Page     *int `json:"page"`
	PageSize *int `json:"page_size"`
}

var (
	defaultPageSize = 25
)

func (q QueryRequest) GetPage() int {
	if q.Page == nil || *q.Page < 1 {
		return 1
	}
	return *q.Page
}

func (q QueryRequest) GetPageSize() int {
	if q.PageSize == nil {
		return defaultPageSize
	}
	return *q.PageSize
}

func (q QueryRequest) Params() recquery.Params {
	filters := make(map[string]string, len(q.Filters))
	for k, v := range q.Filters {
		filters[k] = v
	}
	return recquery.Params{
		SearchText: q.Search,
		Filters:    filters,
		Sort:       q.OrderBy.Sort(),
	}
}

func ReadQueryRequest(filename string) (*QueryRequest, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseQueryRequest(data)
}

func ParseQueryRequest(data []byte) (*QueryRequest, error) {
	var req QueryRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid query request: %w", err)
	}
	return &req, nil
}
